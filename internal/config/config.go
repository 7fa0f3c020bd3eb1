// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Database identifies the metadata store. Either DSN (direct Postgres) or the
// Data API triple (ClusterARN, SecretARN, Name) is set.
type Database struct {
	DSN        string
	ClusterARN string
	SecretARN  string
	Name       string
}

// UsesDataAPI reports whether the Aurora Data API should be used.
func (d Database) UsesDataAPI() bool { return d.DSN == "" }

// Env holds the configuration values shared by every binary. Each MustLoad*
// function enforces only the values its binary needs.
type Env struct {
	Region       string
	SourceBucket string
	OutputBucket string
	QueueURL     string
	EventBusName string
	EventSource  string
	DB           Database

	Consumer    string
	WaitTime    time.Duration
	IdleSleep   time.Duration
	Backoff     time.Duration
	MetricsAddr string
}

// MustLoadUpload loads the configuration for the upload handler.
func MustLoadUpload() Env {
	e := load()
	e.DB = mustDatabase()
	return e
}

// MustLoadListener loads the configuration for the long-running queue listener.
func MustLoadListener() Env {
	e := load()
	e.QueueURL = must("SQS_QUEUE_URL")
	mustConsumer(&e)
	return e
}

// MustLoadProcessor loads the configuration for the SQS-triggered processor.
func MustLoadProcessor() Env {
	e := load()
	mustConsumer(&e)
	return e
}

// MustLoadReader loads the configuration for the photo read endpoint.
func MustLoadReader() Env {
	e := load()
	e.DB = mustDatabase()
	return e
}

// Consumer variants selectable with CONSUMER.
const (
	ConsumerPhoto = "photo"
	ConsumerBlob  = "blob"
)

func load() Env {
	e := Env{
		Region:       get("AWS_REGION", "us-west-2"),
		SourceBucket: get("SOURCE_BUCKET", ""),
		OutputBucket: get("OUTPUT_BUCKET", ""),
		QueueURL:     get("SQS_QUEUE_URL", ""),
		EventBusName: get("EVENT_BUS_NAME", "default"),
		EventSource:  get("EVENT_SOURCE", "custom.imageUpload"),
		Consumer:     get("CONSUMER", ConsumerPhoto),
		WaitTime:     seconds("SQS_WAIT_SECONDS", 10),
		IdleSleep:    seconds("IDLE_SLEEP_SECONDS", 5),
		Backoff:      seconds("BACKOFF_SECONDS", 10),
		MetricsAddr:  get("METRICS_ADDR", ":9090"),
	}
	return e
}

// mustConsumer enforces what the selected consumer needs: the database for
// photo lookups, the output bucket for thumbnails.
func mustConsumer(e *Env) {
	switch e.Consumer {
	case ConsumerPhoto:
		e.DB = mustDatabase()
	case ConsumerBlob:
		e.OutputBucket = must("OUTPUT_BUCKET")
	default:
		panic(fmt.Errorf("unknown CONSUMER %q", e.Consumer))
	}
}

func mustDatabase() Database {
	if dsn := get("DATABASE_URL", ""); dsn != "" {
		return Database{DSN: dsn}
	}
	return Database{
		ClusterARN: must("DB_CLUSTER_ARN"),
		SecretARN:  must("DB_SECRET_ARN"),
		Name:       must("DB_NAME"),
	}
}

// get returns the value of the environment variable k or def if not set.
func get(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// must returns the value of the environment variable k or panics if not set.
func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic(fmt.Errorf("missing env %s", k))
	}
	return v
}

// seconds reads k as a whole number of seconds, falling back to def when unset
// or not a non-negative integer.
func seconds(k string, def int) time.Duration {
	n, err := strconv.Atoi(get(k, strconv.Itoa(def)))
	if err != nil || n < 0 {
		n = def
	}
	return time.Duration(n) * time.Second
}
