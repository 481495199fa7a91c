package publishers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/cardscout-hq/cardscout-harvester/internal/domain"
	"github.com/cardscout-hq/cardscout-harvester/internal/logger"
)

type fakeSQSClient struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQSClient) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-123")}, nil
}

func testEvent() Event {
	return Event{
		RunID: "run-42",
		Items: []domain.CandidateItem{{SourceID: "hlj", Title: "Pokemon Card 151", URL: "https://www.hlj.com/p/1"}},
		Diagnostics: []domain.SourceDiagnostics{
			{SourceID: "hlj", Status: domain.StatusLive},
		},
		CompletedAt: time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC),
	}
}

func TestSQSPublisherSendSuccess(t *testing.T) {
	client := &fakeSQSClient{}
	pub := &sqsPublisher{
		id:       "results-queue",
		typ:      TypeSQS,
		queueURL: "https://example.com/queue",
		client:   client,
		log:      logger.Ensure(nil),
	}

	if err := pub.Publish(context.Background(), testEvent()); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if client.input == nil {
		t.Fatalf("client was not called")
	}
	if got := aws.ToString(client.input.QueueUrl); got != "https://example.com/queue" {
		t.Fatalf("QueueUrl = %s", got)
	}
	attr, ok := client.input.MessageAttributes["run_id"]
	if !ok || attr.StringValue == nil || aws.ToString(attr.StringValue) != "run-42" {
		t.Fatalf("run_id attribute missing or wrong: %#v", attr)
	}
	if attr.DataType == nil || aws.ToString(attr.DataType) != "String" {
		t.Fatalf("DataType should be String, got %#v", attr.DataType)
	}
	body := aws.ToString(client.input.MessageBody)
	if !strings.Contains(body, `"run_id":"run-42"`) || !strings.Contains(body, `"source_id":"hlj"`) {
		t.Fatalf("MessageBody missing event fields: %s", body)
	}
}

func TestSQSPublisherSendError(t *testing.T) {
	pub := &sqsPublisher{
		id:       "results-queue",
		typ:      TypeSQS,
		queueURL: "https://example.com/queue",
		client:   &fakeSQSClient{err: errors.New("boom")},
		log:      logger.Ensure(nil),
	}

	if err := pub.Publish(context.Background(), testEvent()); err == nil {
		t.Fatalf("expected error from Publish")
	}
}
