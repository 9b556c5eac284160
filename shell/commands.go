package shell

import (
	"fmt"

	"github.com/abiosoft/ishell"
)

var commands = []*ishell.Cmd{
	&PortsCmd,
	&ConnectCmd,
	&DisconnectCmd,
	&SendCmd,
	&ReadCmd,
	&PulseCmd,
	&StartCmd,
	&StopCmd,
	&SetCmd,
	&LogCmd,
	&StatusCmd,
}

func report(c *ishell.Context, err error) {
	if err != nil {
		c.Err(err)
		return
	}
	c.Println("OK")
}

var (
	// PortsCmd lists available serial ports.
	PortsCmd = ishell.Cmd{
		Name:    "ports",
		Aliases: []string{"list", "l"},
		Help:    "list serial ports",
		Func: func(c *ishell.Context) {
			line, err := ShellFrom(c).PortsLine()
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(line)
		},
	}

	// ConnectCmd connects the box, closing any previous connection.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[PORT]",
		Func: func(c *ishell.Context) {
			var name string
			if len(c.Args) > 0 {
				name = c.Args[0]
			}
			s := ShellFrom(c)
			if err := s.Connect(name); err != nil {
				c.Err(err)
				return
			}
			c.Printf("connected to %s\n", s.Box.PortName())
		},
	}

	// DisconnectCmd disconnects the box.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			report(c, ShellFrom(c).Disconnect())
		},
	}

	// SendCmd sends one trigger byte.
	SendCmd = ishell.Cmd{
		Name:    "send",
		Aliases: []string{"s"},
		Help:    "VALUE",
		Func: MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("usage: send VALUE"))
				return
			}
			report(c, ShellFrom(c).Send(c.Args[0]))
		}),
	}

	// ReadCmd reads one byte, 0 on timeout.
	ReadCmd = ishell.Cmd{
		Name:    "read",
		Aliases: []string{"r"},
		Help:    "",
		Func: MustBeConnected(func(c *ishell.Context) {
			value, err := ShellFrom(c).Box.ReadTrigger()
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(value)
		}),
	}

	// PulseCmd sends a single pulse.
	PulseCmd = ishell.Cmd{
		Name:    "pulse",
		Aliases: []string{"p"},
		Help:    "VALUE [DURATION]",
		Func: MustBeConnected(func(c *ishell.Context) {
			report(c, ShellFrom(c).Pulse(c.Args))
		}),
	}

	// StartCmd starts sending triggers.
	StartCmd = ishell.Cmd{
		Name: "start",
		Help: "start sending triggers",
		Func: MustBeConnected(func(c *ishell.Context) {
			report(c, ShellFrom(c).Start())
		}),
	}

	// StopCmd stops sending triggers.
	StopCmd = ishell.Cmd{
		Name: "stop",
		Help: "stop sending triggers",
		Func: func(c *ishell.Context) {
			report(c, ShellFrom(c).Stop())
		},
	}

	// SetCmd changes a pulse setting.
	SetCmd = ishell.Cmd{
		Name: "set",
		Help: "value|duration|interval X",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 2 {
				c.Err(fmt.Errorf("usage: set value|duration|interval X"))
				return
			}
			report(c, ShellFrom(c).Set(c.Args[0], c.Args[1]))
		},
	}

	// LogCmd toggles per trigger logging.
	LogCmd = ishell.Cmd{
		Name: "log",
		Help: "on|off",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("usage: log on|off"))
				return
			}
			report(c, ShellFrom(c).SetLog(c.Args[0]))
		},
	}

	// StatusCmd prints connection and loop state.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Help:    "",
		Func: func(c *ishell.Context) {
			c.Println(ShellFrom(c).Status())
		},
	}
)
