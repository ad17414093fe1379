package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"dashboard-observer/src/config"
	pb "dashboard-observer/src/grpc_control"

	jsoniter "github.com/json-iterator/go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

const usage = `usage: dashctl [-config path | -addr host:port] <command>

commands:
  status              show analytics and realtime state
  refresh             force an analytics run
  timeframe <tf>      switch to week, month or year
  live <on|off>       toggle realtime polling
`

// -----------------------------------------------------------------------------

func main() {
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	addr := flag.String("addr", "", "control server address, overrides the config")
	timeout := flag.Duration("timeout", 30*time.Second, "call timeout")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	target := *addr
	if target == "" {
		conf, err := config.NewConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		target = controlAddr(conf.GrpcHost, conf.GrpcPort)
	}

	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to %s: %v\n", target, err)
		os.Exit(1)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	out, err := run(ctx, pb.NewControlClient(conn), flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	pretty, _ := jsoniter.MarshalIndent(out.AsMap(), "", "  ")
	fmt.Println(string(pretty))
}

// -----------------------------------------------------------------------------

func run(ctx context.Context, client *pb.ControlClient, args []string) (*structpb.Struct, error) {
	switch args[0] {
	case "status":
		return client.GetStatus(ctx)
	case "refresh":
		return client.Refresh(ctx)
	case "timeframe":
		if len(args) != 2 {
			return nil, fmt.Errorf("timeframe needs one argument")
		}
		return client.SetTimeframe(ctx, args[1])
	case "live":
		if len(args) != 2 {
			return nil, fmt.Errorf("live needs on or off")
		}
		on, err := parseSwitch(args[1])
		if err != nil {
			return nil, err
		}
		return client.SetLiveMode(ctx, on)
	default:
		return nil, fmt.Errorf("unknown command %q", args[0])
	}
}

func controlAddr(host string, port int) string {
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	if port == 0 {
		port = 50051
	}
	return fmt.Sprintf("%s:%d", host, port)
}

func parseSwitch(v string) (bool, error) {
	switch v {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	on, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("expected on or off, got %q", v)
	}
	return on, nil
}
