// pairchat-cli 是一个交互式命令行客户端：输入文本即发送 chat，以 / 开头的行为命令。
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	network "github.com/lk2023060901/pairchat-go/internal/network"
	"github.com/lk2023060901/pairchat-go/internal/network/connector"
	"github.com/lk2023060901/pairchat-go/internal/protocol"
	"github.com/lk2023060901/pairchat-go/pkg/log"
)

const usage = `commands:
  /match    find a partner
  /cancel   leave the queue or the current conversation
  /ping     ping the server
  /quit     disconnect and exit
anything else is sent as a chat message`

// clientHandler 打印连接生命周期事件。
type clientHandler struct{}

func (clientHandler) OnConnected(conn connector.ClientConn) {
	fmt.Printf("[client] connected: remote=%v local=%v\n", conn.RemoteAddr(), conn.LocalAddr())
}

func (clientHandler) OnClosed(conn connector.ClientConn, err error) {
	fmt.Printf("[client] closed: err=%v\n", err)
}

func (clientHandler) OnError(_ connector.ClientConn, stage network.Stage, err error) {
	log.Warn("client error", zap.String("stage", string(stage)), zap.Error(err))
}

func main() {
	server := flag.String("server", "ws://localhost:8080/", "pairchat server url")
	user := flag.String("user", "", "display name")
	binary := flag.Bool("binary", false, "use binary (protobuf) frames")
	legacy := flag.Bool("legacy", false, "register with the legacy connect message")
	flag.Parse()

	if *user == "" {
		fmt.Fprintln(os.Stderr, "-user is required")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := dial(ctx, *server, connector.Config{Binary: *binary})
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect %s: %v\n", *server, err)
		os.Exit(1)
	}
	defer conn.Close()

	var hello protocol.Inbound = &protocol.RegisterRequest{User: *user}
	if *legacy {
		hello = &protocol.ConnectRequest{UserID: *user}
	}
	if err := send(conn, hello); err != nil {
		fmt.Fprintf(os.Stderr, "register: %v\n", err)
		os.Exit(1)
	}

	go printIncoming(conn)
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	fmt.Println(usage)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if conn.Context().Err() != nil {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req protocol.Inbound
		switch line {
		case "/match":
			req = &protocol.MatchRequest{}
		case "/cancel":
			req = &protocol.CancelMatchRequest{}
		case "/ping":
			req = &protocol.PingRequest{}
		case "/quit":
			_ = send(conn, &protocol.DisconnectRequest{})
			return
		default:
			req = &protocol.ChatRequest{Message: line}
		}
		if err := send(conn, req); err != nil {
			fmt.Printf("[client] send failed: %v\n", err)
		}
	}
}

// dial 在连接失败时按指数退避重试，最长 30 秒。
func dial(ctx context.Context, url string, cfg connector.Config) (connector.ClientConn, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	c := connector.NewWSConnector(cfg)
	var conn connector.ClientConn
	op := func() error {
		var err error
		conn, err = c.Dial(ctx, url, clientHandler{}, nil)
		return err
	}
	notify := func(err error, next time.Duration) {
		fmt.Printf("[client] connect failed, will retry in %v: %v\n", next, err)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, err
	}
	return conn, nil
}

func send(conn connector.ClientConn, req protocol.Inbound) error {
	msg, err := protocol.Tagged(req)
	if err != nil {
		return err
	}
	return conn.Send(msg)
}

func printIncoming(conn connector.ClientConn) {
	for f := range conn.Recv() {
		var msg map[string]any
		if err := conn.Decode(f, &msg); err != nil {
			fmt.Printf("[client] undecodable frame: %v\n", err)
			continue
		}
		switch protocol.Type(fmt.Sprint(msg["type"])) {
		case protocol.TypeWaiting:
			fmt.Println("*** waiting for a partner ***")
		case protocol.TypeMatched:
			fmt.Printf("*** matched with %v ***\n", msg["partner"])
		case protocol.TypePartnerLeft:
			fmt.Println("*** your partner left ***")
		case protocol.TypeChat:
			fmt.Printf("[%v]: %v\n", msg["user"], msg["message"])
		case protocol.TypeUserCount:
			fmt.Printf("*** %v online ***\n", msg["count"])
		case protocol.TypeServerError:
			fmt.Printf("!!! %v\n", msg["message"])
		case protocol.TypePong:
			fmt.Println("pong")
		default:
			fmt.Printf("%v\n", msg)
		}
	}
	fmt.Println("[client] disconnected")
}
