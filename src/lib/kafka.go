package lib

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

func GetKafkaProducerConfig(clientId string) kafka.ConfigMap {
	return kafka.ConfigMap{
		"bootstrap.servers": os.Getenv("KAFKA_BROKER"),
		"client.id":         clientId,
		"acks":              "all",
	}
}

func GetKafkaConsumerConfig(groupId string) kafka.ConfigMap {
	return kafka.ConfigMap{
		"bootstrap.servers": os.Getenv("KAFKA_BROKER"),
		"group.id":          groupId,
		"auto.offset.reset": "smallest",
		"retry.backoff.ms":  100,
	}
}

func KafkaConsumer(groupId string, topics ...string) {
	log.Println("Initializing kafka Consumer...")
	cfg := GetKafkaConsumerConfig(groupId)
	master, err := kafka.NewConsumer(&cfg)

	if err != nil {
		log.Printf("Error on master: %s\n", err.Error())
		return
	}
	err = master.SubscribeTopics(topics, nil)
	if err != nil {
		log.Printf("Error on consumer: %s\n", err.Error())
		return
	}
	go func() {
		log.Println("[BACKGROUND]: waiting for messages...")
		run := true
		for run == true {
			ev := master.Poll(100)
			switch e := ev.(type) {
			case *kafka.Message:
				log.Printf("message received: %s\n", string(e.Value))
				break
			case kafka.Error:
				fmt.Fprintf(os.Stderr, "%% Error: %v\n", e)
				run = false
			default:
				break
			}
		}
		master.Close()
	}()
}

func KafkaProduceMessage(clientId string, topic string, payload map[string]any) error {
	cfg := GetKafkaProducerConfig(clientId)
	p, err := kafka.NewProducer(&cfg)
	if err != nil {
		log.Printf("Error creating producer: %s\n", err.Error())
		return err
	}

	value, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error serializing payload: %s\n", err.Error())
		return err
	}

	err = p.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          value,
	}, nil)
	if err != nil {
		log.Printf("Error producing message: %s\n", err.Error())
		return err
	}
	return nil
}

func KafkaCreateTopics(topics ...string) ([]kafka.TopicResult, error) {
	a, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": os.Getenv("KAFKA_BROKER"),
	})
	if err != nil {
		log.Printf("Error on AdminClient: %s\n", err.Error())
		return nil, err
	}
	topicsDef := []kafka.TopicSpecification{}
	for _, topic := range topics {
		topicsDef = append(topicsDef, kafka.TopicSpecification{
			Topic:         topic,
			NumPartitions: 10,
		})
	}
	result, err := a.CreateTopics(context.Background(), topicsDef)
	if err != nil {
		log.Printf("Error creating topics: %s\n", err.Error())
		return nil, err
	}
	return result, nil
}
