package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustLoadUploadWithDataAPI(t *testing.T) {
	t.Setenv("AWS_REGION", "eu-central-1")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_CLUSTER_ARN", "arn:aws:rds:eu-central-1:1:cluster:photos")
	t.Setenv("DB_SECRET_ARN", "arn:aws:secretsmanager:eu-central-1:1:secret:db")
	t.Setenv("DB_NAME", "photos")

	e := MustLoadUpload()
	assert.Equal(t, "eu-central-1", e.Region)
	assert.Equal(t, "default", e.EventBusName)
	assert.Equal(t, "custom.imageUpload", e.EventSource)
	assert.True(t, e.DB.UsesDataAPI())
	assert.Equal(t, "photos", e.DB.Name)
}

func TestMustLoadUploadPrefersDSN(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/photos")
	e := MustLoadUpload()
	assert.False(t, e.DB.UsesDataAPI())
	assert.Equal(t, "postgres://localhost/photos", e.DB.DSN)
}

func TestMustLoadUploadPanicsWithoutDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_CLUSTER_ARN", "")
	require.Panics(t, func() { MustLoadUpload() })
}

func TestMustLoadListenerDurations(t *testing.T) {
	t.Setenv("SQS_QUEUE_URL", "https://sqs.us-west-2.amazonaws.com/1/face")
	t.Setenv("CONSUMER", ConsumerBlob)
	t.Setenv("OUTPUT_BUCKET", "thumbs")
	t.Setenv("SQS_WAIT_SECONDS", "20")
	t.Setenv("IDLE_SLEEP_SECONDS", "bogus")
	t.Setenv("BACKOFF_SECONDS", "")

	e := MustLoadListener()
	assert.Equal(t, 20*time.Second, e.WaitTime)
	assert.Equal(t, 5*time.Second, e.IdleSleep)
	assert.Equal(t, 10*time.Second, e.Backoff)
	assert.Equal(t, ConsumerBlob, e.Consumer)
	assert.Equal(t, "thumbs", e.OutputBucket)
}

func TestBlobConsumerRequiresOutputBucket(t *testing.T) {
	t.Setenv("CONSUMER", ConsumerBlob)
	t.Setenv("OUTPUT_BUCKET", "")
	require.Panics(t, func() { MustLoadProcessor() })
}

func TestMustLoadListenerRequiresQueue(t *testing.T) {
	t.Setenv("SQS_QUEUE_URL", "")
	t.Setenv("CONSUMER", ConsumerBlob)
	require.Panics(t, func() { MustLoadListener() })
}

func TestUnknownConsumerPanics(t *testing.T) {
	t.Setenv("CONSUMER", "thumbnail")
	require.Panics(t, func() { MustLoadProcessor() })
}

func TestUploadAndReaderIgnoreConsumer(t *testing.T) {
	t.Setenv("CONSUMER", "thumbnail")
	t.Setenv("DATABASE_URL", "postgres://localhost/photos")
	require.NotPanics(t, func() { MustLoadUpload() })
	require.NotPanics(t, func() { MustLoadReader() })
}
