// bridgeclient is a minimal controller for exercising a running bridge by
// hand: it sends one command per line and prints each reply.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/scenebridge/bridgectl/internal/logging"
)

func main() {
	logging.ConfigureRuntime()

	addr := flag.String("addr", "127.0.0.1:1314", "bridge address")
	timeout := flag.Duration("timeout", 5*time.Second, "reply timeout per command")
	flag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bridgeclient: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	// One-shot: the remaining arguments form a single command.
	if args := flag.Args(); len(args) > 0 {
		reply, err := send(conn, strings.Join(args, " "), *timeout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bridgeclient: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(reply)
		return
	}

	fmt.Printf("connected to %s, one command per line, ctrl-d to exit\n", *addr)
	in := bufio.NewScanner(os.Stdin)
	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}
		reply, err := send(conn, line, *timeout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bridgeclient: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(reply)
	}
}

// send writes one newline-delimited command and reads its un-delimited reply.
func send(conn net.Conn, command string, timeout time.Duration) (string, error) {
	if _, err := conn.Write([]byte(command + "\n")); err != nil {
		return "", fmt.Errorf("send %q: %w", command, err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	buf := make([]byte, 64*1024)
	n, err := conn.Read(buf)
	if err != nil {
		return "", fmt.Errorf("await reply for %q: %w", command, err)
	}
	return string(buf[:n]), nil
}
