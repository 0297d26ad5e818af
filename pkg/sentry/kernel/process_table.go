// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package kernel

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/btree"
	"golang.org/x/sync/semaphore"
	"usergate.dev/usergate/pkg/errors/linuxerr"
	"usergate.dev/usergate/pkg/sync"
)

// ThreadID is a process identifier.
type ThreadID int32

// NoParent is the parent of a process admitted without one, such as the
// initial process.
const NoParent ThreadID = -1

// ExitStatusUnset is the exit status of a process that has not exited.
const ExitStatusUnset = -1

// ProcessInfo is a snapshot of one process table record.
type ProcessInfo struct {
	PID         ThreadID
	Name        string
	Parent      ThreadID
	ExitStatus  int32
	Alive       bool
	ParentAlive bool
}

// exitRendezvous is the point where a parent waiting on a child meets the
// child's exit. It is a counting semaphore with initial count 0 that is
// signalled at most once.
type exitRendezvous struct {
	sem  *semaphore.Weighted
	once sync.Once
}

func newExitRendezvous() *exitRendezvous {
	sem := semaphore.NewWeighted(1)
	// Start at count 0.
	sem.TryAcquire(1)
	return &exitRendezvous{sem: sem}
}

// signal releases the waiter, if any. Calls after the first are no-ops.
func (r *exitRendezvous) signal() {
	r.once.Do(func() { r.sem.Release(1) })
}

// wait blocks until signal is called or ctx is done.
func (r *exitRendezvous) wait(ctx context.Context) error {
	return r.sem.Acquire(ctx, 1)
}

// processRecord is one slot of the ProcessTable.
type processRecord struct {
	ProcessInfo

	// occupied is true while the slot holds a process. An unoccupied slot
	// carries no meaningful data.
	occupied bool

	// waited is set once the parent has waited on this process.
	waited bool

	exited *exitRendezvous
}

// pidEntry maps a pid to its slot in ProcessTable.records.
type pidEntry struct {
	pid  ThreadID
	slot int
}

func pidEntryLess(a, b pidEntry) bool {
	return a.pid < b.pid
}

// ProcessTable records the identity and lifetime of every process.
//
// A record is created when a process is admitted, before it runs. It stays
// occupied while the process is alive or while its parent might still wait
// on it, and is reclaimed only once the process has exited and its parent
// has also exited (or never existed).
//
// All operations are linearizable under mu, except Insert, which releases mu
// while it looks up the parent. A parent that exits during that window may
// leave the new record with a stale ParentAlive.
type ProcessTable struct {
	// nameSize bounds stored names to nameSize-1 bytes.
	nameSize int

	mu sync.Mutex

	// records is a fixed-capacity arena.
	//
	// +checklocks:mu
	records []processRecord

	// free holds the indices of unoccupied, unreserved slots.
	//
	// +checklocks:mu
	free []int

	// pids indexes occupied records by pid, in ascending order.
	//
	// +checklocks:mu
	pids *btree.BTreeG[pidEntry]
}

// NewProcessTable returns an empty table holding at most size processes.
// Names are truncated to nameSize-1 bytes.
func NewProcessTable(size, nameSize int) *ProcessTable {
	pt := &ProcessTable{
		nameSize: nameSize,
		records:  make([]processRecord, size),
		free:     make([]int, 0, size),
		pids:     btree.NewG[pidEntry](8, pidEntryLess),
	}
	// Hand out low slots first.
	for i := size - 1; i >= 0; i-- {
		pt.free = append(pt.free, i)
	}
	return pt
}

// truncateName bounds name the way a fixed-size C buffer would.
func (pt *ProcessTable) truncateName(name string) string {
	if limit := pt.nameSize - 1; limit >= 0 && len(name) > limit {
		return name[:limit]
	}
	return name
}

// lookupLocked returns the occupied record for pid.
//
// Preconditions: pt.mu is locked.
func (pt *ProcessTable) lookupLocked(pid ThreadID) (*processRecord, int, bool) {
	e, ok := pt.pids.Get(pidEntry{pid: pid})
	if !ok {
		return nil, 0, false
	}
	return &pt.records[e.slot], e.slot, true
}

// releaseLocked frees the slot holding pid.
//
// Preconditions: pt.mu is locked.
func (pt *ProcessTable) releaseLocked(pid ThreadID, slot int) {
	pt.pids.Delete(pidEntry{pid: pid})
	pt.records[slot] = processRecord{}
	pt.free = append(pt.free, slot)
}

// Insert admits process pid, named name, with the given parent. The new
// record is alive with exit status ExitStatusUnset. Its ParentAlive is the
// parent's liveness as observed at insertion; a parent that is absent or
// NoParent yields false.
//
// Insert returns EEXIST if pid is already present and EAGAIN if the table is
// full.
func (pt *ProcessTable) Insert(pid ThreadID, name string, parent ThreadID) (ThreadID, error) {
	pt.mu.Lock()
	if pt.pids.Has(pidEntry{pid: pid}) {
		pt.mu.Unlock()
		return 0, linuxerr.EEXIST
	}
	if len(pt.free) == 0 {
		pt.mu.Unlock()
		return 0, linuxerr.EAGAIN
	}
	// Reserve the slot so nobody else claims it while the lock is dropped.
	slot := pt.free[len(pt.free)-1]
	pt.free = pt.free[:len(pt.free)-1]
	pt.mu.Unlock()

	parentAlive := false
	if parent != NoParent {
		if info, ok := pt.Find(parent); ok {
			parentAlive = info.Alive
		}
	}

	pt.mu.Lock()
	defer pt.mu.Unlock()
	if pt.pids.Has(pidEntry{pid: pid}) {
		pt.free = append(pt.free, slot)
		return 0, linuxerr.EEXIST
	}
	pt.records[slot] = processRecord{
		ProcessInfo: ProcessInfo{
			PID:         pid,
			Name:        pt.truncateName(name),
			Parent:      parent,
			ExitStatus:  ExitStatusUnset,
			Alive:       true,
			ParentAlive: parentAlive,
		},
		occupied: true,
		exited:   newExitRendezvous(),
	}
	pt.pids.ReplaceOrInsert(pidEntry{pid: pid, slot: slot})
	return pid, nil
}

// Find returns a copy of the record for pid.
func (pt *ProcessTable) Find(pid ThreadID) (ProcessInfo, bool) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	rec, _, ok := pt.lookupLocked(pid)
	if !ok {
		return ProcessInfo{}, false
	}
	return rec.ProcessInfo, true
}

// SetExitStatus records the exit status of pid. It must be called before
// Remove for the status to be seen by a waiting parent.
func (pt *ProcessTable) SetExitStatus(pid ThreadID, status int32) error {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	rec, _, ok := pt.lookupLocked(pid)
	if !ok {
		return linuxerr.ESRCH
	}
	rec.ExitStatus = status
	return nil
}

// Remove marks pid as exited. The record is freed immediately if its parent
// is already gone; otherwise it is kept for the parent to wait on. Either
// way the exit rendezvous is signalled and every child of pid learns that
// its parent is no longer alive.
//
// Remove returns false if pid is absent or has already been removed. The
// exit status is never modified.
func (pt *ProcessTable) Remove(pid ThreadID) (ThreadID, bool) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	rec, slot, ok := pt.lookupLocked(pid)
	if !ok || !rec.Alive {
		return 0, false
	}
	rec.Alive = false
	rec.exited.signal()
	if !rec.ParentAlive {
		pt.releaseLocked(pid, slot)
	}
	pt.broadcastToChildrenLocked(pid)
	return pid, true
}

// BroadcastToChildren propagates the liveness of parent to its children.
// Children that have exited are freed once parent is gone.
func (pt *ProcessTable) BroadcastToChildren(parent ThreadID) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.broadcastToChildrenLocked(parent)
}

// Preconditions: pt.mu is locked.
func (pt *ProcessTable) broadcastToChildrenLocked(parent ThreadID) {
	alive := false
	if rec, _, ok := pt.lookupLocked(parent); ok {
		alive = rec.Alive
	}
	var doomed []pidEntry
	pt.pids.Ascend(func(e pidEntry) bool {
		rec := &pt.records[e.slot]
		if rec.Parent != parent || e.pid == parent {
			return true
		}
		rec.ParentAlive = alive
		if !alive && !rec.Alive {
			doomed = append(doomed, e)
		}
		return true
	})
	for _, e := range doomed {
		pt.releaseLocked(e.pid, e.slot)
	}
}

// Purge removes every record. Processes still alive have their rendezvous
// signalled so that no waiter stays blocked.
func (pt *ProcessTable) Purge() {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	var all []pidEntry
	pt.pids.Ascend(func(e pidEntry) bool {
		all = append(all, e)
		return true
	})
	for _, e := range all {
		if rec := &pt.records[e.slot]; rec.Alive {
			rec.exited.signal()
		}
		pt.releaseLocked(e.pid, e.slot)
	}
}

// Wait blocks until child pid of parent has exited and returns its exit
// status. A child can be waited on once; Wait returns ECHILD if pid is
// absent, is not a child of parent, or has already been waited on. It
// returns ctx's error if ctx is done first.
func (pt *ProcessTable) Wait(ctx context.Context, parent, pid ThreadID) (int32, error) {
	pt.mu.Lock()
	rec, _, ok := pt.lookupLocked(pid)
	if !ok || rec.Parent != parent || rec.waited {
		pt.mu.Unlock()
		return ExitStatusUnset, linuxerr.ECHILD
	}
	rec.waited = true
	exited := rec.exited
	pt.mu.Unlock()

	if err := exited.wait(ctx); err != nil {
		// The wait never completed; the parent may try again.
		pt.mu.Lock()
		if rec, _, ok := pt.lookupLocked(pid); ok {
			rec.waited = false
		}
		pt.mu.Unlock()
		return ExitStatusUnset, err
	}

	// The record outlives the wait: it is freed only once parent exits.
	info, ok := pt.Find(pid)
	if !ok {
		return ExitStatusUnset, linuxerr.ECHILD
	}
	return info.ExitStatus, nil
}

// Len returns the number of occupied records.
func (pt *ProcessTable) Len() int {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.pids.Len()
}

// Capacity returns the maximum number of records.
func (pt *ProcessTable) Capacity() int {
	return len(pt.records)
}

// List returns a copy of every occupied record, ordered by pid.
func (pt *ProcessTable) List() []ProcessInfo {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	infos := make([]ProcessInfo, 0, pt.pids.Len())
	pt.pids.Ascend(func(e pidEntry) bool {
		infos = append(infos, pt.records[e.slot].ProcessInfo)
		return true
	})
	return infos
}

// String renders the table as printed by the plist syscall.
func (pt *ProcessTable) String() string {
	infos := pt.List()
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ProcessID\tProcessName\tParentID\tExitStatus\tAlive\tParentAlive")
	fmt.Fprintln(w, "---------\t-----------\t--------\t----------\t-----\t-----------")
	for _, p := range infos {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%t\t%t\n", p.PID, p.Name, p.Parent, p.ExitStatus, p.Alive, p.ParentAlive)
	}
	w.Flush()
	fmt.Fprintf(&b, "\nTotal processes: %d\n", len(infos))
	b.WriteString("--------------------------\n")
	return b.String()
}
