package acelog

// logQueue is an unbounded FIFO of tasks. Not thread-safe: the owner guards
// it with Pipeline.sync.queuMtx.
type logQueue struct {
	tasks []logTask
	head  int // index of the oldest task in tasks
}

func newLogQueue(capacity int) *logQueue {
	if capacity <= 0 {
		capacity = DEFAULT_QUEUE_CAP
	}
	return &logQueue{tasks: make([]logTask, 0, capacity)}
}

func (q *logQueue) push(task logTask) {
	q.tasks = append(q.tasks, task)
}

// pop removes the oldest task. ok is false on an empty queue.
func (q *logQueue) pop() (task logTask, ok bool) {
	if q.head >= len(q.tasks) {
		return task, false
	}
	task = q.tasks[q.head]
	q.tasks[q.head] = logTask{} // release message memory
	q.head++
	if q.head == len(q.tasks) {
		// drained: reuse backing array from the start
		q.tasks = q.tasks[:0]
		q.head = 0
	} else if q.head >= DEFAULT_QUEUE_CAP && q.head*2 >= len(q.tasks) {
		// more than half consumed: compact
		n := copy(q.tasks, q.tasks[q.head:])
		clear(q.tasks[n:])
		q.tasks = q.tasks[:n]
		q.head = 0
	}
	return task, true
}

func (q *logQueue) len() int {
	return len(q.tasks) - q.head
}

// clear drops every queued task and returns how many were dropped.
func (q *logQueue) clear() int {
	n := q.len()
	clear(q.tasks)
	q.tasks = q.tasks[:0]
	q.head = 0
	return n
}
