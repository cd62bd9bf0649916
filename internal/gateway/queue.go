package gateway

// outcome is what a refresh cycle hands to each waiter.
type outcome struct {
	token string
	err   error
}

// waitQueue is the FIFO of requests parked on the in-flight refresh. It is
// guarded by the Gateway mutex.
type waitQueue struct {
	waiters []chan outcome
}

// push parks a new waiter. The channel is buffered so the drain never blocks
// on a caller that stopped listening.
func (q *waitQueue) push() <-chan outcome {
	ch := make(chan outcome, 1)
	q.waiters = append(q.waiters, ch)
	return ch
}

func (q *waitQueue) len() int {
	return len(q.waiters)
}

// take detaches the current waiters in enqueue order and resets the queue for
// the next refresh cycle.
func (q *waitQueue) take() []chan outcome {
	w := q.waiters
	q.waiters = nil
	return w
}

func settle(waiters []chan outcome, o outcome) {
	for _, ch := range waiters {
		ch <- o
	}
}
