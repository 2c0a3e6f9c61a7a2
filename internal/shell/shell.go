package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/mupfdev/CANopenTerm/pkg/bridge"
	"github.com/mupfdev/CANopenTerm/pkg/can"
	"github.com/mupfdev/CANopenTerm/pkg/link"
	"github.com/mupfdev/CANopenTerm/pkg/sdo"
	log "github.com/sirupsen/logrus"
)

const Prompt = ": "

var (
	ErrUnknownCommand = errors.New("unknown command, type h for help")
	ErrUsage          = errors.New("usage")
)

// Shell is the interactive operator prompt.
// Output may come from the supervisor goroutine (prompt resume)
// as well as from commands, writes to out are serialized.
type Shell struct {
	mu         sync.Mutex
	out        io.Writer
	logger     *log.Entry
	supervisor *link.Supervisor
	bridge     *bridge.Bridge
	sdoClient  *sdo.Client
}

func New(out io.Writer, supervisor *link.Supervisor, bridge *bridge.Bridge, sdoClient *sdo.Client, logger *log.Logger) *Shell {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Shell{
		out:        out,
		logger:     logger.WithField("service", "[SHELL]"),
		supervisor: supervisor,
		bridge:     bridge,
		sdoClient:  sdoClient,
	}
}

func (s *Shell) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

func (s *Shell) Prompt() {
	s.printf("%s", Prompt)
}

// Handle reprints the prompt after a link state change,
// the supervisor log line has moved the cursor to a new line
func (s *Shell) Handle(event link.Event) {
	if event.To == link.Connected || event.To == link.Faulted {
		s.Prompt()
	}
}

func (s *Shell) PrintHelp() {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CMD\tParameters\tDescription")
	fmt.Fprintln(w, "h\t\tShow this help")
	fmt.Fprintln(w, "b\t[code]\tShow bit rates or select one")
	fmt.Fprintln(w, "w\tid length d0d3 d4d7\tWrite CAN frame")
	fmt.Fprintln(w, "r\t\tRead next received CAN frame")
	fmt.Fprintln(w, "sdo\tindex subindex size value node\tWrite SDO (size 1, 2 or 4)")
	fmt.Fprintln(w, "s\t\tShow link status")
	fmt.Fprintln(w, "q\t\tQuit")
	w.Flush()
}

// PrintBitRateHelp shows the bit rate table, marking the selected entry
func (s *Shell) PrintBitRateHelp() {
	active := s.supervisor.BitRate().Index()
	s.mu.Lock()
	defer s.mu.Unlock()
	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "CMD\tDescription\tStatus\t")
	for _, rate := range can.BitRates() {
		status := ""
		if rate.Index() == active {
			status = "Active"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t\n", rate.Index(), rate, status)
	}
	w.Flush()
}

func (s *Shell) printStatus() {
	status := s.supervisor.Status()
	s.printf("link %v at %v, status %v (%v)\n",
		s.supervisor.State(), s.supervisor.BitRate(), status, s.bridge.ErrorText(status))
}

func parseUint(arg string, bitSize int) (uint64, error) {
	value, err := strconv.ParseUint(arg, 0, bitSize)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q : %w", arg, err)
	}
	return value, nil
}

func parseArgs(args []string, bitSizes ...int) ([]uint64, error) {
	if len(args) != len(bitSizes) {
		return nil, ErrUsage
	}
	values := make([]uint64, len(args))
	for i, arg := range args {
		value, err := parseUint(arg, bitSizes[i])
		if err != nil {
			return nil, err
		}
		values[i] = value
	}
	return values, nil
}

// Execute runs a single command line, quit is true on "q"
func (s *Shell) Execute(line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	command, args := fields[0], fields[1:]
	switch command {
	case "h":
		s.PrintHelp()
	case "b":
		if len(args) == 0 {
			s.PrintBitRateHelp()
			return false, nil
		}
		values, err := parseArgs(args, 32)
		if err != nil {
			return false, err
		}
		return false, s.supervisor.SetBitRate(uint(values[0]))
	case "w":
		values, err := parseArgs(args, 32, 8, 32, 32)
		if err != nil {
			return false, err
		}
		if !s.bridge.Write(uint32(values[0]), int(values[1]), uint32(values[2]), uint32(values[3])) {
			return false, fmt.Errorf("frame not sent")
		}
	case "r":
		frame, status := s.bridge.Read()
		switch {
		case status == can.StatusQRcvEmpty:
			s.printf("no frame received\n")
		case status.OK():
			s.printf("%v\n", frame)
		default:
			return false, status.Err()
		}
	case "sdo":
		values, err := parseArgs(args, 8, 16, 8, 32, 8)
		if err != nil {
			return false, err
		}
		return false, s.sdoClient.Write(uint8(values[0]), uint16(values[1]), sdo.DataType(values[2]), uint32(values[3]), uint8(values[4]))
	case "s":
		s.printStatus()
	case "q":
		return true, nil
	default:
		return false, ErrUnknownCommand
	}
	return false, nil
}

// Run reads commands from in until "q", end of input or ctx is cancelled
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	s.Prompt()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-scanErr:
			return err
		case line := <-lines:
			quit, err := s.Execute(line)
			if quit {
				return nil
			}
			if errors.Is(err, ErrUsage) {
				s.PrintHelp()
			} else if err != nil {
				s.logger.Debugf("command %q failed : %v", line, err)
				s.printf("%v\n", err)
			}
			s.Prompt()
		}
	}
}
