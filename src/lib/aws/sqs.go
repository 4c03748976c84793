package aws

import (
	"context"
	"homestay/src/lib"
	"homestay/src/types"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type SQSConsumer struct {
	Name    string
	handler *types.Handler
}

func NewSQSConsumer(queue string, handler types.Handler) *SQSConsumer {
	new := SQSConsumer{
		Name:    queue,
		handler: &handler,
	}
	return &new
}

func (s *SQSConsumer) Listen() {
	go func() {
		qname := s.Name
		client := lib.AWSGetSQSClient()
		qurl, err := client.GetQueueUrl(context.TODO(), &sqs.GetQueueUrlInput{
			QueueName: aws.String(qname),
		})
		if err != nil {
			log.Printf("Failed to retrieve queue URL for %s: %s\n", qname, err.Error())
			return
		}
		log.Printf("%s: Listening for messages...", qname)
		messagesChan := make(chan *sqstypes.Message, 5)
		go func(chn chan<- *sqstypes.Message) {
			for {
				output, err := client.ReceiveMessage(context.Background(), &sqs.ReceiveMessageInput{
					QueueUrl:            qurl.QueueUrl,
					WaitTimeSeconds:     20,
					MaxNumberOfMessages: 10,
				})
				if err != nil {
					log.Printf("[SQS] Error receiving messages: %s\n", err.Error())
					return
				}
				for _, m := range output.Messages {
					chn <- &m
				}
			}
		}(messagesChan)

		for m := range messagesChan {
			body := strings.Clone(*m.Body)
			h := *s.handler
			go h(body)
			go lib.SQSDeleteMessage(client, qurl.QueueUrl, m)
		}
	}()
}
