package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mupfdev/CANopenTerm/internal/shell"
	"github.com/mupfdev/CANopenTerm/pkg/bridge"
	"github.com/mupfdev/CANopenTerm/pkg/can"
	_ "github.com/mupfdev/CANopenTerm/pkg/can/sim"
	_ "github.com/mupfdev/CANopenTerm/pkg/can/slcan"
	_ "github.com/mupfdev/CANopenTerm/pkg/can/socketcan"
	_ "github.com/mupfdev/CANopenTerm/pkg/can/virtual"
	"github.com/mupfdev/CANopenTerm/pkg/config"
	gwhttp "github.com/mupfdev/CANopenTerm/pkg/http"
	"github.com/mupfdev/CANopenTerm/pkg/link"
	"github.com/mupfdev/CANopenTerm/pkg/sdo"
	log "github.com/sirupsen/logrus"
)

const VERSION = "0.2.7"

func main() {
	// Command line arguments
	configPath := flag.String("c", "", "ini configuration file, reloaded on change")
	driver := flag.String("d", config.DefaultInterface, fmt.Sprintf("adapter driver (%v)", strings.Join(can.Drivers(), ",")))
	channel := flag.String("i", config.DefaultChannel, "adapter channel e.g. can0, /dev/ttyACM0, localhost:18888")
	bitRate := flag.Uint("b", uint(can.DefaultBitRate.Index()), "bit rate index 0..13")
	level := flag.String("v", config.DefaultLogLevel.String(), "log level")
	listen := flag.String("l", "", "HTTP command server address e.g. :8090")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Printf("CANopenTerm %s\n", VERSION)
		return
	}

	conf := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("unable to load configuration : %v", err)
		}
		conf = loaded
	}
	// Explicit flags take precedence over the configuration file
	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "d":
			conf.Interface = *driver
		case "i":
			conf.Channel = *channel
		case "b":
			rate, ok := can.BitRateFromIndex(*bitRate)
			if !ok {
				log.Warnf("bit rate index %v out of range, using %v", *bitRate, rate)
			}
			conf.BitRate = rate
		case "v":
			conf.LogLevel, flagErr = log.ParseLevel(*level)
		case "l":
			conf.Listen = *listen
		}
	})
	if flagErr != nil {
		log.Fatal(flagErr)
	}
	if err := conf.Validate(); err != nil {
		log.Fatal(err)
	}
	log.SetLevel(conf.LogLevel)

	canDriver, err := can.NewDriver(conf.Interface, conf.Channel)
	if err != nil {
		log.Fatal(err)
	}
	gateway := can.NewGateway(canDriver)
	supervisor := link.NewSupervisor(gateway, conf.Link(), nil)
	b := bridge.NewBridge(gateway, nil)
	sdoClient := sdo.NewClient(b, nil)
	terminal := shell.New(os.Stdout, supervisor, b, sdoClient, nil)
	supervisor.Subscribe(terminal)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := supervisor.Start(ctx); err != nil {
		log.Fatal(err)
	}

	if *configPath != "" {
		go func() {
			err := config.Watch(ctx, *configPath, nil, func(changed *config.Config) {
				log.SetLevel(changed.LogLevel)
				if changed.BitRate != supervisor.BitRate() {
					supervisor.SetBitRate(uint(changed.BitRate.Index()))
				}
			})
			if err != nil {
				log.Warnf("configuration changes will not be applied : %v", err)
			}
		}()
	}

	var server *http.Server
	if conf.Listen != "" {
		gw := gwhttp.NewGatewayServer(supervisor, b, sdoClient, nil)
		server = &http.Server{Addr: conf.Listen, Handler: gw.Handler()}
		go func() {
			log.Infof("HTTP command server listening on %v", conf.Listen)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("HTTP command server : %v", err)
			}
		}()
	}

	if err := terminal.Run(ctx, os.Stdin); err != nil {
		log.Errorf("reading commands : %v", err)
	}
	stop()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
	supervisor.Stop()
	supervisor.Wait()
}
