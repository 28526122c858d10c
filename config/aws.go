package config

import (
	"log"
	"os"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/bedrockruntime"
	"github.com/aws/aws-sdk-go/service/bedrockruntime/bedrockruntimeiface"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
)

var (
	awsSession *session.Session
	awsMu      sync.Mutex

	bedrockClient bedrockruntimeiface.BedrockRuntimeAPI
	sqsClient     sqsiface.SQSAPI
	snsClient     snsiface.SNSAPI
)

// ConnectAWS initializes the shared AWS session and the service clients the
// portal uses (Bedrock runtime, SQS, SNS). Under APP_ENV=test no session is
// created and the clients stay nil; tests inject fakes through the
// Set*ClientForTesting helpers. Calling it again after a successful connect
// returns the existing session.
func ConnectAWS() (*session.Session, error) {
	awsMu.Lock()
	defer awsMu.Unlock()

	if os.Getenv("APP_ENV") == "test" {
		return nil, nil
	}
	if awsSession != nil {
		return awsSession, nil
	}

	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-1"
	}

	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, err
	}

	awsSession = sess
	bedrockClient = bedrockruntime.New(sess)
	sqsClient = sqs.New(sess)
	snsClient = sns.New(sess)
	log.Printf("AWS session initialized for region %s", region)
	return awsSession, nil
}

// GetBedrockClient returns the Bedrock runtime client (may be nil if ConnectAWS failed or not called).
func GetBedrockClient() bedrockruntimeiface.BedrockRuntimeAPI {
	return bedrockClient
}

// GetSQSClient returns the SQS client (may be nil if ConnectAWS failed or not called).
func GetSQSClient() sqsiface.SQSAPI {
	return sqsClient
}

// GetSNSClient returns the SNS client (may be nil if ConnectAWS failed or not called).
func GetSNSClient() snsiface.SNSAPI {
	return snsClient
}

// SetBedrockClientForTesting allows tests to inject a fake Bedrock client.
// This should only be used in tests.
func SetBedrockClientForTesting(client bedrockruntimeiface.BedrockRuntimeAPI) {
	bedrockClient = client
}

// SetSQSClientForTesting allows tests to inject a fake SQS client.
// This should only be used in tests.
func SetSQSClientForTesting(client sqsiface.SQSAPI) {
	sqsClient = client
}

// SetSNSClientForTesting allows tests to inject a fake SNS client.
// This should only be used in tests.
func SetSNSClientForTesting(client snsiface.SNSAPI) {
	snsClient = client
}
