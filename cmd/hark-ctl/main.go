package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	cli "github.com/spf13/pflag"

	"hark/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", ipc.SocketPath(), "Daemon control socket")
	direct := cli.BoolP("direct", "d", false, "Skip the wake phrase for this text")
	timeout := cli.DurationP("timeout", "t", 10*time.Second, "Request timeout")
	cli.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: hark-ctl [flags] say <text> | status\n")
		cli.PrintDefaults()
	}
	cli.Parse()

	args := cli.Args()
	if len(args) == 0 {
		cli.Usage()
		os.Exit(2)
	}

	msg := ipc.Message{Cmd: args[0]}
	switch msg.Cmd {
	case ipc.CmdSay:
		msg.Text = strings.Join(args[1:], " ")
		msg.Direct = *direct
	case ipc.CmdStatus:
	default:
		cli.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	resp, err := ipc.Send(ctx, *socket, msg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hark-daemon not running:", err)
		os.Exit(1)
	}
	if !resp.OK {
		fmt.Fprintln(os.Stderr, "error:", resp.Error)
		os.Exit(1)
	}
	fmt.Println(resp.Text)
}
