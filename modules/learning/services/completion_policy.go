package services

import (
	"github.com/openlms-dev/openlms/modules/learning/domain/aggregates/enrollment"
)

// CompletionPolicy decides when a parent counts as completed given its
// direct children. The exact elective-counting semantics are product
// configuration; policies are pluggable so they can change without
// touching the cascade.
type CompletionPolicy interface {
	Completed(children []*enrollment.Enrollment) bool
}

// AllRequired completes a parent only when every child is completed.
type AllRequired struct{}

func (AllRequired) Completed(children []*enrollment.Enrollment) bool {
	if len(children) == 0 {
		return false
	}
	for _, c := range children {
		if c.Status != enrollment.StatusCompleted {
			return false
		}
	}
	return true
}

// ElectiveMinimum completes a parent once at least Min children are
// completed (elective groups: the module's elective_count field).
type ElectiveMinimum struct {
	Min int
}

func (p ElectiveMinimum) Completed(children []*enrollment.Enrollment) bool {
	if p.Min <= 0 {
		return false
	}
	completed := 0
	for _, c := range children {
		if c.Status == enrollment.StatusCompleted {
			completed++
		}
	}
	return completed >= p.Min
}

// PolicyFor selects the completion policy for a parent enrollment.
func PolicyFor(parent *enrollment.Enrollment) CompletionPolicy {
	if parent.ElectiveCount > 0 {
		return ElectiveMinimum{Min: parent.ElectiveCount}
	}
	return AllRequired{}
}

// AggregateStatus computes a parent's status from its direct children,
// rules evaluated in order:
//
//  1. any child in progress makes the parent in progress;
//  2. the parent is completed when the policy is satisfied;
//  3. otherwise the parent is (or reverts to) not started.
func AggregateStatus(children []*enrollment.Enrollment, policy CompletionPolicy) enrollment.Status {
	for _, c := range children {
		if c.Status == enrollment.StatusInProgress {
			return enrollment.StatusInProgress
		}
	}
	if policy.Completed(children) {
		return enrollment.StatusCompleted
	}
	return enrollment.StatusNotStarted
}
