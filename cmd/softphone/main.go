// Command softphone is a terminal operator console for one agent. It
// signs in, registers a console-driven line, subscribes to the presence
// hub, and drives the call controller from the keyboard. Vendor signaling
// is simulated with console commands, so the whole flow works against a
// dev server with no live telephony account.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"dialdesk/internal/apiclient"
	"dialdesk/internal/device"
	"dialdesk/internal/realtime"
)

var (
	serverURL = flag.String("server", "http://localhost:8080", "REST API base URL")
	hubAddr   = flag.String("hub", "localhost:8081", "realtime hub host:port")
	email     = flag.String("email", "", "login email")
	password  = flag.String("password", "", "login password")
)

func main() {
	flag.Parse()
	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: softphone -email you@example.com -password secret [-server URL] [-hub host:port]")
		os.Exit(2)
	}

	api := apiclient.New(*serverURL)
	user, err := api.Login(*email, *password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "login: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Signed in as %s (ext %s, %s)\n", user.FullName, user.Extension, user.Role)

	vendorToken, err := api.MintVendorToken("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "vendor token: %v\n", err)
		os.Exit(1)
	}

	line := &consoleLine{}
	controller := device.NewController(user.ID, line, api)
	line.controller = controller
	printTransitions(controller)

	if err := controller.Register(vendorToken); err != nil {
		fmt.Fprintf(os.Stderr, "register: %v\n", err)
		os.Exit(1)
	}

	feed := device.NewHubFeed(*hubAddr, api.Token(), controller)
	feed.OnEvent = printHubEvent
	feed.Start()
	defer feed.Stop()

	fmt.Println("Commands: ring [number] | Enter=answer | r=reject | h=hangup | drop | status | q")
	repl(controller)

	controller.Shutdown()
	if err := api.Logout(); err != nil {
		fmt.Fprintf(os.Stderr, "logout: %v\n", err)
	}
}

func repl(controller *device.Controller) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		input := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(input)

		switch {
		case input == "":
			// Enter answers while ringing, per the desk habit.
			if controller.State() != device.StateRinging {
				continue
			}
			if err := controller.Accept(); err != nil {
				fmt.Printf("answer: %v\n", err)
			}
		case input == "r":
			if err := controller.Reject(); err != nil {
				fmt.Printf("reject: %v\n", err)
			}
		case input == "h":
			if err := controller.Hangup(); err != nil {
				fmt.Printf("hangup: %v\n", err)
			}
		case fields[0] == "ring":
			from := "+15557001212"
			if len(fields) > 1 {
				from = fields[1]
			}
			controller.HandleIncoming("CA"+uuid.NewString(), from, "office")
		case input == "drop":
			// Simulate the far end going away, in whatever state.
			if call := controller.CurrentCall(); call != nil {
				controller.HandleDisconnect(call.SID)
			} else {
				fmt.Println("no call to drop")
			}
		case input == "status":
			fmt.Printf("state=%s", controller.State())
			if call := controller.CurrentCall(); call != nil {
				fmt.Printf(" call=%s from=%s status=%s", call.SID, call.From, call.Status)
			}
			fmt.Println()
		case input == "q" || input == "quit":
			return
		default:
			fmt.Println("commands: ring [number] | Enter | r | h | drop | status | q")
		}
	}
}

// printTransitions renders controller events as console lines.
func printTransitions(controller *device.Controller) {
	controller.Emitter.On(device.EventRegistered, func(interface{}) {
		fmt.Println("* line registered, waiting for calls")
	})
	controller.Emitter.On(device.EventUnregistered, func(data interface{}) {
		if err, ok := data.(error); ok && err != nil {
			fmt.Printf("* line lost: %v\n", err)
			return
		}
		fmt.Println("* line unregistered")
	})
	controller.Emitter.On(device.EventIncomingCall, func(data interface{}) {
		call := data.(device.Call)
		fmt.Printf("\n*** INCOMING from %s (Enter=answer, r=reject) ***\n> ", call.From)
	})
	controller.Emitter.On(device.EventCallActive, func(data interface{}) {
		call := data.(device.Call)
		fmt.Printf("* on call with %s (h to hang up)\n", call.From)
	})
	controller.Emitter.On(device.EventCallEnded, func(data interface{}) {
		call := data.(device.Call)
		fmt.Printf("* call with %s ended\n", call.From)
	})
	controller.Emitter.On(device.EventCallDismissed, func(data interface{}) {
		d := data.(device.Dismissal)
		if d.AnsweredByName != "" {
			fmt.Printf("* call from %s answered by %s\n", d.Call.From, d.AnsweredByName)
			return
		}
		fmt.Printf("* call from %s went away\n", d.Call.From)
	})
	controller.Emitter.On(device.EventNotice, func(data interface{}) {
		fmt.Printf("! %v\n", data)
	})
}

// printHubEvent renders teammate presence pushed by the hub.
func printHubEvent(event realtime.Event) {
	switch event.Type {
	case realtime.EventUserCallStarted, realtime.EventUserCallEnded,
		realtime.EventUserCreated, realtime.EventUserUpdated, realtime.EventUserDeleted:
		fmt.Printf("~ %s\n", event.Message)
	}
}

// consoleLine stands in for a vendor SDK binding. Commands acknowledge
// locally and the vendor's asynchronous callbacks are driven from console
// input instead of a live signaling channel.
type consoleLine struct {
	controller *device.Controller
}

func (l *consoleLine) Register(token string) error {
	short := token
	if len(short) > 16 {
		short = short[:16] + "..."
	}
	fmt.Printf("* vendor line up (token %s)\n", short)
	l.controller.HandleRegistered()
	return nil
}

func (l *consoleLine) Unregister() error {
	return nil
}

func (l *consoleLine) Accept(callSID string) error {
	return nil
}

func (l *consoleLine) Reject(callSID string) error {
	return nil
}

// Hangup reports the teardown back as the vendor's disconnect callback,
// the same shape a live leg would produce.
func (l *consoleLine) Hangup(callSID string) error {
	go l.controller.HandleDisconnect(callSID)
	return nil
}
