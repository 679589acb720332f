package acelog

import (
	"errors"
	"strconv"
)

/*
Contains the background delivery loop. Responsible for:
 - waiting for queued tasks or a stop request
 - popping tasks in FIFO order and delivering them outside the queue lock
 - turning host delivery errors and panics into fallback diagnostics
*/

// msgDescStr returns a concise one-line description of a task used in
// diagnostics.
func msgDescStr(task *logTask) string {
	return "level=" + strconv.Itoa(int(task.level)) +
		" domain=" + task.domain +
		" msg=`" + task.msg + "`"
}

// procced is the worker loop. It waits until a task is queued or a stop is
// requested, pops one task, releases the queue lock and delivers it.
//
// The loop exits on stop right away under DROP_PENDING and once the queue is
// empty under DRAIN_PENDING. Delivery failures never end the loop; a panic
// escaping the loop itself is reported to the fallback sink.
func (p *Pipeline) procced() {
	defer func() {
		if r := recover(); r != nil {
			p.diagnose(LVL_ERROR, "panic in delivery worker"+panicDesc(r))
		}
	}()
	for {
		task, ok := p.nextTask()
		if !ok {
			return
		}
		if err := p.deliver(&task); err != nil {
			p.diagnose(LVL_ERROR, "error delivering log task: "+err.Error())
		}
	}
}

// nextTask blocks until a task can be delivered. ok is false when the worker
// has to exit.
func (p *Pipeline) nextTask() (task logTask, ok bool) {
	p.sync.queuMtx.Lock()
	defer p.sync.queuMtx.Unlock()
	for p.queue.len() == 0 && p.state == _STATE_ACTIVE {
		p.wake.Wait()
	}
	if p.state != _STATE_ACTIVE && (p.policy == DROP_PENDING || p.queue.len() == 0) {
		return task, false
	}
	task, ok = p.queue.pop()
	if ok {
		p.metrics.TaskDequeued()
	}
	return task, ok
}

// deliver calls the host delivery function for the task level. The function
// is resolved under the binding read lock and called without it, so a host
// that logs back into the pipeline or a concurrent registration never waits
// on delivery. A missing binding or a level the host does not expose drops
// the task without error; a failing host call is returned as error.
func (p *Pipeline) deliver(task *logTask) (err error) {
	p.sync.bindMtx.RLock()
	binding := p.binding
	p.sync.bindMtx.RUnlock()
	if binding == nil {
		p.metrics.TasksDropped(_REASON_UNBOUND, 1, false)
		return nil
	}
	fn := binding.deliverer(task.level)
	if fn == nil {
		p.metrics.TasksDropped(_REASON_NO_METHOD, 1, false)
		return nil
	}
	if err = callHost(fn, task); err != nil {
		p.metrics.DeliveryFailed(task.level.String())
		p.metrics.TasksDropped(_REASON_FAILED, 1, false)
		return err
	}
	p.metrics.TaskDelivered(task.level.String())
	return nil
}

// callHost runs fn and converts a panic into an error. Only named results can
// be changed by the deferred recover.
func callHost(fn DeliverFunc, task *logTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("panic in host logger" + panicDesc(r) + " (" + msgDescStr(task) + ")")
		}
	}()
	if e := fn(task.domain, task.msg); e != nil {
		err = errors.New("host logger error: " + e.Error() + " (" + msgDescStr(task) + ")")
	}
	return err
}
