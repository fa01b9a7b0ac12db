package env

import (
	"os"
)

const (
	AWSRegion            = "AWS_REGION"
	AWSID                = "AWS_ID"
	AWSSecret            = "AWS_SECRET"
	AWSToken             = "AWS_TOKEN"
	DynamoDBEndpoint     = "DYNAMODB_ENDPOINT"
	VisitorSecretKey     = "VISITOR_SECRET"
	EventsRedisURL       = "EVENTS_REDIS_URL"
	EventsRedisPass      = "EVENTS_REDIS_PASS"
	EngineURL            = "ENGINE_URL"
	EngineTimeoutSeconds = "ENGINE_TIMEOUT_SECONDS"
	PaymentWebhookSecret = "PAYMENT_WEBHOOK_SECRET"
	ResendAPIKey         = "RESEND_API_KEY"
	FulfillmentEmail     = "FULFILLMENT_EMAIL"
	SessionTTLHours      = "SESSION_TTL_HOURS"
	TimeWasterBlockHours = "TIME_WASTER_BLOCK_HOURS"
	LogLevel             = "LOG_LEVEL"
	LogFormat            = "LOG_FORMAT"
	WebUrl               = "WEB_URL"
)

// MustValidate panics if a required variable is missing. The binaries call it
// after loading .env; library packages never do, so tests stay import-safe.
func MustValidate() {
	required := []string{
		AWSRegion,
		AWSID,
		AWSSecret,
		// AWSToken,
		VisitorSecretKey,
		EventsRedisURL,
		PaymentWebhookSecret,
		WebUrl,
	}
	for _, key := range required {
		if os.Getenv(key) == "" {
			panic("env: required environment variable not set: " + key)
		}
	}
}

func Get(key string) string {
	return os.Getenv(key)
}

func GetOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func MustGet(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic("env: required environment variable not set: " + key)
	}
	return val
}
