package queue_test

import (
	"context"
	"time"

	"basegraph.app/intake/internal/dialogue"
	"basegraph.app/intake/internal/model"
	"basegraph.app/intake/internal/queue"
	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"
)

var _ = Describe("ParseMessage", func() {
	DescribeTable("rejects malformed entries",
		func(values map[string]any, wantErr string) {
			_, err := queue.ParseMessage(redis.XMessage{ID: "1-0", Values: values})
			Expect(err).To(MatchError(ContainSubstring(wantErr)))
		},
		Entry("no task type", map[string]any{"ticket_id": "T-1"}, "missing task_type"),
		Entry("foreign task type", map[string]any{"task_type": "repo_sync", "ticket_id": "T-1"}, "unknown task_type"),
		Entry("no ticket", map[string]any{"task_type": "ticket_delivery"}, "missing ticket_id"),
		Entry("bad attempt", map[string]any{"task_type": "ticket_delivery", "ticket_id": "T-1", "attempt": "x"}, "parsing attempt"),
		Entry("bad snapshot", map[string]any{"task_type": "ticket_delivery", "ticket_id": "T-1", "ticket": "{"}, "parsing ticket snapshot"),
		Entry("snapshot for another ticket", map[string]any{"task_type": "ticket_delivery", "ticket_id": "T-1", "ticket": `{"id":"T-2"}`}, "does not match"),
	)

	It("defaults the attempt to one", func() {
		msg, err := queue.ParseMessage(redis.XMessage{ID: "1-0", Values: map[string]any{
			"task_type":  "ticket_delivery",
			"ticket_id":  "TICKET-9",
			"session_id": "s-1",
		}})
		Expect(err).NotTo(HaveOccurred())
		Expect(msg.Attempt).To(Equal(1))
		Expect(msg.TicketID).To(Equal("TICKET-9"))
		Expect(msg.SessionID).To(Equal("s-1"))
		Expect(msg.TraceID).To(BeEmpty())
	})
})

var _ = Describe("Redis stream round trip", func() {
	var (
		ctx      context.Context
		mr       *miniredis.Miniredis
		client   *redis.Client
		producer queue.Producer
		consumer *queue.RedisConsumer
	)

	BeforeEach(func() {
		ctx = context.Background()
		mr = miniredis.RunT(GinkgoT())
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		producer = queue.NewRedisProducer(client, "deliveries", nil)

		var err error
		consumer, err = queue.NewRedisConsumer(ctx, client, queue.ConsumerConfig{
			Stream:    "deliveries",
			Group:     "intake_delivery",
			Consumer:  "test-worker",
			DLQStream: "deliveries_dlq",
			BatchSize: 10,
			Block:     -1,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = client.Close()
	})

	It("tolerates an existing consumer group", func() {
		_, err := queue.NewRedisConsumer(ctx, client, queue.ConsumerConfig{Stream: "deliveries", Group: "intake_delivery"})
		Expect(err).NotTo(HaveOccurred())
	})

	It("delivers enqueued tickets to the group", func() {
		trace := "4bf92f3577b34da6a3ce929d0e0e4736"
		Expect(producer.Enqueue(ctx, queue.DeliveryMessage{TicketID: "TICKET-1", SessionID: "s-1", TraceID: &trace})).To(Succeed())

		msgs, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].TicketID).To(Equal("TICKET-1"))
		Expect(msgs[0].TraceID).To(Equal(trace))
		Expect(msgs[0].Attempt).To(Equal(1))

		Expect(consumer.Ack(ctx, msgs[0])).To(Succeed())

		msgs, err = consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(msgs).To(BeEmpty())
	})

	It("requeues with the next attempt", func() {
		Expect(producer.Enqueue(ctx, queue.DeliveryMessage{TicketID: "TICKET-2", SessionID: "s-2"})).To(Succeed())
		msgs, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(consumer.Requeue(ctx, msgs[0], "tracker unavailable")).To(Succeed())

		msgs, err = consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].Attempt).To(Equal(2))
		Expect(msgs[0].Raw.Values).To(HaveKeyWithValue("last_error", "tracker unavailable"))
	})

	It("keeps the ticket snapshot across requeues", func() {
		snapshot := &model.Ticket{
			ID:                 "TICKET-4",
			SessionID:          "s-4",
			Title:              "Export hangs",
			Severity:           dialogue.SeverityHigh,
			AffectedComponents: []string{"Reports"},
			Status:             model.TicketStatusPending,
			CreatedAt:          time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		}
		Expect(producer.Enqueue(ctx, queue.DeliveryMessage{TicketID: "TICKET-4", SessionID: "s-4", Ticket: snapshot})).To(Succeed())

		msgs, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(msgs[0].Ticket).NotTo(BeNil())
		Expect(msgs[0].Ticket.Title).To(Equal("Export hangs"))

		Expect(consumer.Requeue(ctx, msgs[0], "db down")).To(Succeed())

		msgs, err = consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].Ticket).NotTo(BeNil())
		Expect(msgs[0].Ticket.Severity).To(Equal(dialogue.SeverityHigh))
		Expect(msgs[0].Ticket.AffectedComponents).To(Equal([]string{"Reports"}))
		Expect(msgs[0].Ticket.CreatedAt.Equal(snapshot.CreatedAt)).To(BeTrue())
	})

	It("moves exhausted messages to the dead letter stream", func() {
		Expect(producer.Enqueue(ctx, queue.DeliveryMessage{TicketID: "TICKET-3", Attempt: 3})).To(Succeed())
		msgs, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(consumer.SendDLQ(ctx, msgs[0], "gave up")).To(Succeed())

		entries, err := client.XRange(ctx, "deliveries_dlq", "-", "+").Result()
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Values).To(HaveKeyWithValue("ticket_id", "TICKET-3"))
		Expect(entries[0].Values).To(HaveKeyWithValue("error", "gave up"))
	})

	It("acks and skips unparseable entries", func() {
		Expect(client.XAdd(ctx, &redis.XAddArgs{Stream: "deliveries", Values: map[string]any{"junk": "1"}}).Err()).To(Succeed())

		msgs, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(msgs).To(BeEmpty())

		pending, err := client.XPending(ctx, "deliveries", "intake_delivery").Result()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending.Count).To(BeZero())
	})
})

