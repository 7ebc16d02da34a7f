package actor_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/amp-labs/amp-fsm/actor"
)

var errUnknownCommand = errors.New("unknown command")

// ExampleNew demonstrates creating a basic actor.
func ExampleNew() {
	ctx := context.Background()

	echo := actor.New(func(ref *actor.Ref[string, string]) actor.Processor[string, string] {
		return actor.SimpleProcessor(func(msg string) (string, error) {
			return "Processed: " + msg, nil
		})
	})

	ref := echo.Run(ctx, "processor", 10)
	defer ref.Stop()

	result, err := ref.RequestCtx(ctx, "Hello")
	if err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Println(result)
	// Output: Processed: Hello
}

// ExampleRef_SendCtx sends without waiting; Stop lets the queued message
// drain before the actor exits.
func ExampleRef_SendCtx() {
	ctx := context.Background()

	printer := actor.New(func(ref *actor.Ref[string, struct{}]) actor.Processor[string, struct{}] {
		return actor.SimpleProcessor(func(msg string) (struct{}, error) {
			fmt.Printf("Logged: %s\n", msg)

			return struct{}{}, nil
		})
	})

	ref := printer.Run(ctx, "printer", 10)

	ref.SendCtx(ctx, "Hello, Actor!")

	ref.Stop()
	ref.Wait()

	// Output: Logged: Hello, Actor!
}

// ExampleActor demonstrates a complete actor workflow with state.
func ExampleActor() {
	ctx := context.Background()

	counter := actor.New(func(ref *actor.Ref[string, int]) actor.Processor[string, int] {
		count := 0

		return actor.SimpleProcessor(func(cmd string) (int, error) {
			switch cmd {
			case "increment":
				count++

				return count, nil
			case "get":
				return count, nil
			default:
				return 0, fmt.Errorf("%w: %s", errUnknownCommand, cmd)
			}
		})
	})

	ref := counter.Run(ctx, "counter", 10)
	defer ref.Stop()

	val1, _ := ref.RequestCtx(ctx, "increment")
	fmt.Printf("After increment: %d\n", val1)

	val2, _ := ref.RequestCtx(ctx, "increment")
	fmt.Printf("After increment: %d\n", val2)

	val3, _ := ref.RequestCtx(ctx, "get")
	fmt.Printf("Current value: %d\n", val3)

	_, err := ref.RequestCtx(ctx, "reset")
	fmt.Println(err)

	// Output:
	// After increment: 1
	// After increment: 2
	// Current value: 2
	// unknown command: reset
}

// ExampleRef_Halt shows a processor ending its own actor.
func ExampleRef_Halt() {
	ctx := context.Background()

	once := actor.New(func(ref *actor.Ref[string, string]) actor.Processor[string, string] {
		return actor.SimpleProcessor(func(msg string) (string, error) {
			ref.Halt()

			return "last: " + msg, nil
		})
	})

	ref := once.Run(ctx, "once", 1)

	out, _ := ref.RequestCtx(ctx, "bye")
	fmt.Println(out)

	ref.Wait()

	_, err := ref.RequestCtx(ctx, "again")
	fmt.Println(err)

	// Output:
	// last: bye
	// actor is dead
}
