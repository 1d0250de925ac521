package stats

import (
	"context"

	"github.com/estesp/pplot/utils"
	log "github.com/sirupsen/logrus"
)

// PSUtilTracker walks the live process tree with gopsutil. Every call is a
// fresh walk; nothing is cached between snapshots.
type PSUtilTracker struct{}

// NewPSUtilTracker creates a process tree tracker
func NewPSUtilTracker() *PSUtilTracker {
	return &PSUtilTracker{}
}

// Snapshot returns root and, when children is set, every live descendant.
// Processes that vanish during the walk are left out.
func (t *PSUtilTracker) Snapshot(ctx context.Context, root Identity, children bool) []Identity {
	rootProc, err := openIdentity(ctx, root)
	if err != nil {
		log.WithError(err).WithField("pid", root.PID).Debug("root process not running")
		return nil
	}

	ids := []Identity{root}
	if !children {
		return ids
	}

	seen := map[int]bool{rootProc.PID(): true}
	queue := []*utils.Proc{rootProc}
	for len(queue) > 0 && ctx.Err() == nil {
		parent := queue[0]
		queue = queue[1:]

		kids, err := parent.Children(ctx)
		if err != nil {
			log.WithError(err).WithField("pid", parent.PID()).Debug("skipping children")
			continue
		}
		for _, kid := range kids {
			if seen[kid.PID()] {
				continue
			}
			seen[kid.PID()] = true

			created, err := kid.CreateTime(ctx)
			if err != nil || !kid.Alive(ctx) {
				continue
			}
			ids = append(ids, Identity{PID: int32(kid.PID()), CreateTime: created})
			queue = append(queue, kid)
		}
	}
	return ids
}
