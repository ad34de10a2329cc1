/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// WaitPortAndListeningServer waits until getPort returns a non-zero port
// and the server accepts TCP connections on host:port.
func WaitPortAndListeningServer(host string, getPort func() int, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	for {
		if port := getPort(); port > 0 {
			conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", host, port), time.Second)
			if err == nil {
				return port, conn.Close()
			}
		}
		if time.Now().After(deadline) {
			return 0, errors.New("waiting for listening server timed out")
		}
		time.Sleep(time.Millisecond * 10)
	}
}
