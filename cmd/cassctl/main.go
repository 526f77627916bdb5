// cassctl is a small operator tool for poking at a cluster through the
// client library: schema inspection, single-row reads and writes, and
// range scans.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v2"

	"github.com/kallaspriit/cassandra-go-client/pkg/cassandra"
	"github.com/kallaspriit/cassandra-go-client/pkg/cassthrift"
	"github.com/kallaspriit/cassandra-go-client/pkg/schema"
)

func main() {
	app := kingpin.New("cassctl", "Inspect and edit data in a Cassandra cluster.")

	configFile := app.Flag("config.file", "YAML file with client configuration.").String()
	addresses := app.Flag("addresses", "Comma-separated host:port list.").String()
	keyspace := app.Flag("keyspace", "Keyspace to select.").String()
	username := app.Flag("username", "Username to authenticate with.").String()
	password := app.Flag("password", "Password to authenticate with.").String()
	timeout := app.Flag("timeout", "Overall timeout for the command.").Default("30s").Duration()

	versionCmd := app.Command("version", "Print the API version of the cluster.")

	describeCmd := app.Command("describe", "Print the schema of the keyspace.")

	getCmd := app.Command("get", "Fetch one row.")
	getCF := getCmd.Arg("column-family", "Column family to read.").Required().String()
	getKey := getCmd.Arg("key", "Row key.").Required().String()

	scanCmd := app.Command("scan", "Scan rows by key range.")
	scanCF := scanCmd.Arg("column-family", "Column family to scan.").Required().String()
	scanStart := scanCmd.Flag("start", "Start key, inclusive.").String()
	scanEnd := scanCmd.Flag("end", "End key, inclusive.").String()
	scanLimit := scanCmd.Flag("limit", "Stop after this many rows.").Default("100").Int32()

	insertCmd := app.Command("insert", "Write columns into one row.")
	insertCF := insertCmd.Arg("column-family", "Column family to write.").Required().String()
	insertKey := insertCmd.Arg("key", "Row key.").Required().String()
	insertCols := insertCmd.Arg("columns", "name=value pairs.").Required().Strings()

	removeCmd := app.Command("remove", "Delete one row.")
	removeCF := removeCmd.Arg("column-family", "Column family to delete from.").Required().String()
	removeKey := removeCmd.Arg("key", "Row key.").Required().String()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	logger := level.NewFilter(log.NewLogfmtLogger(os.Stderr), level.AllowInfo())

	cfg := cassandra.Config{}
	if *configFile != "" {
		buf, err := os.ReadFile(*configFile)
		if err != nil {
			fatal(logger, "reading config file", err)
		}
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			fatal(logger, "parsing config file", err)
		}
	}
	if *addresses != "" {
		cfg.Addresses = *addresses
	}
	if *keyspace != "" {
		cfg.Keyspace = *keyspace
	}
	if *username != "" {
		cfg.Username = *username
		cfg.Password = *password
	}
	cfg.StubFactory = cassthrift.Factory()

	client, err := cassandra.New(cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		fatal(logger, "connecting", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch command {
	case versionCmd.FullCommand():
		version, err := client.DescribeVersion(ctx)
		if err != nil {
			fatal(logger, "describe_version", err)
		}
		fmt.Println(version)

	case describeCmd.FullCommand():
		if client.Keyspace() == "" {
			fatal(logger, "describe", fmt.Errorf("no keyspace selected"))
		}
		ks, err := client.DescribeKeyspace(ctx, client.Keyspace())
		if err != nil {
			fatal(logger, "describe_keyspace", err)
		}
		fmt.Printf("keyspace %s (strategy %s)\n", ks.Name, ks.StrategyClass)
		for _, cf := range ks.CfDefs {
			fmt.Printf("  %s: type=%s comparator=%s\n", cf.Name, cf.ColumnType, cf.ComparatorType)
		}

	case getCmd.FullCommand():
		cf := newColumnFamily(client, logger, *getCF)
		row, err := cf.Get(ctx, []byte(*getKey), nil)
		if err != nil {
			fatal(logger, "get", err)
		}
		printRow(*getKey, row)

	case scanCmd.FullCommand():
		cf := newColumnFamily(client, logger, *scanCF)
		it := cf.GetKeyRange(ctx, []byte(*scanStart), []byte(*scanEnd), *scanLimit, nil)
		for it.Next() {
			key, row := it.At()
			printRow(string(key), row)
		}
		if err := it.Err(); err != nil {
			fatal(logger, "scan", err)
		}

	case insertCmd.FullCommand():
		cf := newColumnFamily(client, logger, *insertCF)
		cols := cassandra.Columns{}
		for _, pair := range *insertCols {
			name, value, ok := strings.Cut(pair, "=")
			if !ok {
				fatal(logger, "insert", fmt.Errorf("column %q is not name=value", pair))
			}
			cols[name] = []byte(value)
		}
		if err := cf.Insert(ctx, []byte(*insertKey), cassandra.Row{Columns: cols}); err != nil {
			fatal(logger, "insert", err)
		}

	case removeCmd.FullCommand():
		cf := newColumnFamily(client, logger, *removeCF)
		if err := cf.Remove(ctx, []byte(*removeKey), nil); err != nil {
			fatal(logger, "remove", err)
		}
	}
}

func newColumnFamily(client *cassandra.Client, logger log.Logger, name string) *cassandra.ColumnFamily {
	cf := cassandra.NewColumnFamily(client, name)
	cf.Schema = schema.New(client, schema.DefaultTTL, logger)
	return cf
}

func printRow(key string, row cassandra.Row) {
	if row.Empty() {
		fmt.Printf("%s: (no columns)\n", key)
		return
	}
	fmt.Printf("%s:\n", key)
	for name, value := range row.Columns {
		fmt.Printf("  %s = %q\n", name, value)
	}
	for superName, sub := range row.SuperColumns {
		fmt.Printf("  %s:\n", superName)
		for name, value := range sub {
			fmt.Printf("    %s = %q\n", name, value)
		}
	}
}

func fatal(logger log.Logger, msg string, err error) {
	level.Error(logger).Log("msg", msg, "err", err)
	os.Exit(1)
}
