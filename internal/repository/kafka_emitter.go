package repository

import (
	"context"

	"LGDPulse/internal/domain/models"
	pkgkafka "LGDPulse/pkg/kafka"
)

// KafkaEmitter implements ArtifactEmitter over Kafka topics. Emission is
// append-only: artifacts are published once per run and never retracted.
type KafkaEmitter struct {
	producer       *pkgkafka.Producer
	resultsTopic   string
	verdictsTopic  string
	changeLogTopic string
}

// NewKafkaEmitter creates a Kafka artifact emitter.
func NewKafkaEmitter(producer *pkgkafka.Producer, resultsTopic, verdictsTopic, changeLogTopic string) *KafkaEmitter {
	return &KafkaEmitter{
		producer:       producer,
		resultsTopic:   resultsTopic,
		verdictsTopic:  verdictsTopic,
		changeLogTopic: changeLogTopic,
	}
}

func (e *KafkaEmitter) EmitResults(ctx context.Context, runID, modelID string, results []models.ValidationResult) error {
	if len(results) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(results))
	for i, r := range results {
		msgs[i] = pkgkafka.Message{
			Key: []byte(modelID),
			Value: map[string]interface{}{
				"run_id":     runID,
				"model_id":   modelID,
				"metric":     r.Metric,
				"segment":    r.Segment,
				"value":      r.Value,
				"threshold":  r.Threshold,
				"status":     string(r.Status),
				"annotation": r.Annotation,
			},
		}
	}
	return e.producer.PublishBatch(ctx, e.resultsTopic, msgs)
}

func (e *KafkaEmitter) EmitVerdict(ctx context.Context, v models.GovernanceVerdict) error {
	return e.producer.Publish(ctx, e.verdictsTopic, []byte(v.ModelID), v)
}

func (e *KafkaEmitter) EmitChangeLog(ctx context.Context, entry models.ChangeLogEntry) error {
	return e.producer.Publish(ctx, e.changeLogTopic, []byte(entry.ModelVersion), entry)
}

func (e *KafkaEmitter) Close() error {
	if e.producer != nil {
		return e.producer.Close()
	}
	return nil
}
