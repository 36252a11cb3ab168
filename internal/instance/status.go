package instance

import (
	"fmt"
	"slices"
)

// Status is the lifecycle state of a lambda instance.
type Status string

const (
	StatusPending        Status = "PENDING"
	StatusClusterCreated Status = "CLUSTER_CREATED"
	StatusClusterFailed  Status = "CLUSTER_FAILED"
	StatusStarted        Status = "STARTED"
	StatusStopping       Status = "STOPPING"
	StatusStopped        Status = "STOPPED"
	StatusStarting       Status = "STARTING"
	StatusDestroying     Status = "DESTROYING"
	StatusDestroyed      Status = "DESTROYED"
	StatusFailed         Status = "FAILED"
)

var instanceTransitions = map[Status][]Status{
	"":                   {StatusPending},
	StatusPending:        {StatusClusterCreated, StatusClusterFailed, StatusDestroying},
	StatusClusterCreated: {StatusStarted, StatusFailed, StatusDestroying},
	StatusClusterFailed:  {StatusDestroying},
	StatusStarted:        {StatusStopping, StatusFailed, StatusDestroying},
	StatusStopping:       {StatusStopped, StatusFailed, StatusDestroying},
	StatusStopped:        {StatusStarting, StatusDestroying},
	StatusStarting:       {StatusStarted, StatusFailed, StatusDestroying},
	StatusFailed:         {StatusDestroying},
	StatusDestroying:     {StatusDestroyed, StatusFailed},
	StatusDestroyed:      {},
}

// CanTransition reports whether an instance may move from s to next.
func (s Status) CanTransition(next Status) bool {
	return slices.Contains(instanceTransitions[s], next)
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	allowed, ok := instanceTransitions[s]
	return ok && len(allowed) == 0
}

// ApplicationStatus is the lifecycle state of an application deployed on an instance.
type ApplicationStatus string

const (
	AppUploading ApplicationStatus = "UPLOADING"
	AppUploaded  ApplicationStatus = "UPLOADED"
	AppDeploying ApplicationStatus = "DEPLOYING"
	AppDeployed  ApplicationStatus = "DEPLOYED"
	AppFailed    ApplicationStatus = "FAILED"
)

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	"":           {AppUploading},
	AppUploading: {AppUploaded, AppFailed},
	AppUploaded:  {AppDeploying},
	AppDeploying: {AppDeployed, AppFailed},
	AppDeployed:  {AppDeploying},
	AppFailed:    {AppUploading, AppDeploying},
}

// CanTransition reports whether an application may move from s to next.
func (s ApplicationStatus) CanTransition(next ApplicationStatus) bool {
	return slices.Contains(applicationTransitions[s], next)
}

// TransitionError rejects an illegal status change.
type TransitionError struct {
	Kind string
	From string
	To   string
}

func (e *TransitionError) Error() string {
	from := e.From
	if from == "" {
		from = "(new)"
	}
	return fmt.Sprintf("illegal %s transition %s -> %s", e.Kind, from, e.To)
}

// Application is a job deployed on an instance.
type Application struct {
	Name   string            `yaml:"name"`
	Status ApplicationStatus `yaml:"status"`
}

// Transition moves the application to next if allowed.
func (a *Application) Transition(next ApplicationStatus) error {
	if !a.Status.CanTransition(next) {
		return &TransitionError{Kind: "application", From: string(a.Status), To: string(next)}
	}
	a.Status = next
	return nil
}
