package lib

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

func awsGetSdkConfig() (*aws.Config, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Printf("Error loading default config: %s\n", err.Error())
		return nil, err
	}
	return &cfg, nil
}

func AWSGetSQSClient() *sqs.Client {
	cfg, err := awsGetSdkConfig()
	if err != nil {
		log.Printf("Failed to initialize SQS client: %s\n", err.Error())
		return nil
	}
	client := sqs.NewFromConfig(*cfg)
	return client
}

func AWSGetSNSClient() *sns.Client {
	cfg, err := awsGetSdkConfig()
	if err != nil {
		log.Printf("Failed to initialize SNS client: %s\n", err.Error())
		return nil
	}
	client := sns.NewFromConfig(*cfg)
	return client
}

func GetTopicArn(topic string) string {
	region := os.Getenv("AWS_REGION")
	account := os.Getenv("AWS_ACCOUNT_ID")
	return fmt.Sprintf("arn:aws:sns:%s:%s:%s", region, account, topic)
}

// SNSPublishMessage serializes payload and publishes it to the named topic.
func SNSPublishMessage(topic string, payload map[string]any) error {
	client := AWSGetSNSClient()
	if client == nil {
		return fmt.Errorf("SNS client unavailable")
	}
	value, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error serializing payload: %s\n", err.Error())
		return err
	}
	_, err = client.Publish(context.Background(), &sns.PublishInput{
		TopicArn: aws.String(GetTopicArn(topic)),
		Message:  aws.String(string(value)),
	})
	if err != nil {
		log.Printf("Error publishing to topic [%s]: %s\n", topic, err.Error())
		return err
	}
	return nil
}

func SQSDeleteMessage(c *sqs.Client, qurl *string, msg *sqsTypes.Message) {
	_, err := c.DeleteMessage(context.TODO(), &sqs.DeleteMessageInput{
		QueueUrl:      qurl,
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		log.Printf("Error deleting message from queue: %s\n", err.Error())
		return
	}
	log.Printf("Deleted message from queue: %s\n", *msg.MessageId)
}
