package worker_test

import (
	"context"
	"sync"
	"time"

	"basegraph.app/intake/internal/queue"
	"basegraph.app/intake/internal/worker"
	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"
)

var _ = Describe("Reclaimer", func() {
	It("hands stale pending deliveries to the handler", func() {
		ctx := context.Background()
		mr := miniredis.RunT(GinkgoT())
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()

		producer := queue.NewRedisProducer(client, "deliveries", nil)
		consumer, err := queue.NewRedisConsumer(ctx, client, queue.ConsumerConfig{
			Stream:    "deliveries",
			Group:     "intake_delivery",
			Consumer:  "crashed-worker",
			BatchSize: 10,
			Block:     -1,
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(producer.Enqueue(ctx, queue.DeliveryMessage{TicketID: "TICKET-7", SessionID: "s-7"})).To(Succeed())
		msgs, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(msgs).To(HaveLen(1))

		var (
			mu      sync.Mutex
			handled []string
		)
		r := worker.NewReclaimer(client, worker.ReclaimerConfig{
			Stream:    "deliveries",
			Group:     "intake_delivery",
			Consumer:  "reclaimer",
			Interval:  10 * time.Millisecond,
			BatchSize: 10,
		}, consumer, func(ctx context.Context, msg queue.Message) error {
			mu.Lock()
			defer mu.Unlock()
			if len(handled) == 0 {
				handled = append(handled, msg.TicketID)
				return consumer.Ack(ctx, msg)
			}
			return nil
		})

		go r.Run(ctx)
		defer r.Stop()

		Eventually(func() []string {
			mu.Lock()
			defer mu.Unlock()
			return append([]string(nil), handled...)
		}, time.Second).Should(Equal([]string{"TICKET-7"}))
	})
})
