// Package kafka is the Kafka (and Redpanda) sink connector.
//
// Every message is sent through a sarama.SyncProducer and the call returns
// only after the broker acknowledged it or the ack timeout expired. Producer
// retries are disabled: a message is attempted exactly once.
//
// Configuration keys (see Config):
//
//	brokers:      ["localhost:9092"]
//	ackTimeout:   1s
//	requiredAcks: one | all | none
//	version:      2.1.1
//	createTopics: [hackernews-topic]
//	sasl:         {enable, username, password, algorithm: sha256 | sha512 | plain}
//	tls:          {enable, certFile, keyFile, caFile, skipVerify}
package kafka
