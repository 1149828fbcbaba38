// Command subscribe is a minimal subscriber client for brokerd: it
// opens a local listening port, registers it with the broker's
// subscriber port, and prints every pushed frame it receives.
//
// Usage:
//
//	subscribe <broker-subscriber-addr> <filter> <local-port> <mode>
//
// mode is "p" for persistent or "-" for non-persistent.
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
)

func main() {
	if len(os.Args) != 5 {
		fmt.Fprintln(os.Stderr, "usage: subscribe <broker-subscriber-addr> <filter> <local-port> <mode>")
		os.Exit(2)
	}
	brokerAddr, filter, localPort, mode := os.Args[1], os.Args[2], os.Args[3], os.Args[4]

	ln, err := net.Listen("tcp", ":"+localPort)
	if err != nil {
		fmt.Fprintf(os.Stderr, "subscribe: listen: %v\n", err)
		os.Exit(1)
	}
	defer ln.Close()

	reg, err := net.Dial("tcp", brokerAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "subscribe: register: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(reg, "%s|127.0.0.1:%s|%s\n", filter, localPort, mode)
	reg.Close()

	fmt.Printf("listening on :%s for pushed messages matching %q\n", localPort, filter)

	for {
		conn, err := ln.Accept()
		if err != nil {
			fmt.Fprintf(os.Stderr, "subscribe: accept: %v\n", err)
			continue
		}
		go func() {
			defer conn.Close()
			data, _ := bufio.NewReader(conn).ReadString(0)
			fmt.Println(data)
		}()
	}
}
