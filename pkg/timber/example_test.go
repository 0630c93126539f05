package timber_test

import (
	"context"
	"fmt"
	"log"

	"github.com/crimson-sun/timber/pkg/timber"
)

func Example() {
	cfg := timber.DefaultConfig()
	cfg.Console.Enabled = false
	cfg.Network.Enabled = true

	send := timber.TransportFunc(func(_ context.Context, events []timber.Event) error {
		fmt.Printf("sent %d events\n", len(events))
		return nil
	})

	l, err := timber.New(timber.WithConfig(cfg), timber.WithTransport(send))
	if err != nil {
		log.Fatal(err)
	}
	defer l.Close()

	cause := timber.NewError("db", 7, map[string]any{"table": "users"})
	events, err := l.Emit(timber.LevelError, "request failed",
		timber.WithError(timber.WrapError(cause, "api", 500, nil)))
	if err != nil {
		log.Fatal(err)
	}

	rec, _ := events[0].Decode()
	fmt.Println(rec.Message, rec.Metadata["file"])
	fmt.Println(rec.UserInfo["error_domain"], rec.UserInfo["1.error_domain"], rec.UserInfo["table"])

	if err := <-l.ForceSend(context.Background()); err != nil {
		log.Fatal(err)
	}
	// Output:
	// request failed example_test.go
	// api db users
	// sent 1 events
}
