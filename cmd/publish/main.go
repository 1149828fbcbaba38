// Command publish is a minimal publisher client for brokerd: it opens
// one TCP connection to a publisher port and sends newline-delimited
// "<topic>|<value>" frames.
//
// Usage:
//
//	publish <host:port> <topic> <value>
//	publish <host:port> -          # read "<topic>|<value>" frames from stdin
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: publish <host:port> <topic> <value>")
		fmt.Fprintln(os.Stderr, "       publish <host:port> -   (read frames from stdin)")
		os.Exit(2)
	}

	conn, err := net.Dial("tcp", os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "publish: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	if os.Args[2] == "-" {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			fmt.Fprintf(conn, "%s\n", scanner.Text())
		}
		return
	}

	if len(os.Args) < 4 {
		fmt.Fprintln(os.Stderr, "usage: publish <host:port> <topic> <value>")
		os.Exit(2)
	}
	fmt.Fprintf(conn, "%s|%s\n", os.Args[2], os.Args[3])
}
