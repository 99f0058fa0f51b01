package model

// Status is the status of a run instance or of a whole stage.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSuccess   Status = "success"
	StatusFailure   Status = "failure"
	StatusSkipped   Status = "skipped"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailure, StatusSkipped, StatusCancelled:
		return true
	default:
		return false
	}
}

// StageName identifies a stage of the pipeline.
type StageName string

const (
	StagePrimary  StageName = "primary"
	StageFallback StageName = "fallback"
)

// StepKind is one of the ordered steps executed for every run instance.
type StepKind string

const (
	StepCheckout            StepKind = "checkout"
	StepSetupEnvironment    StepKind = "setup-environment"
	StepInstallDependencies StepKind = "install-dependencies"
	StepInstallTarget       StepKind = "install-target"
	StepSmoke               StepKind = "smoke"
	StepVerify              StepKind = "verify"
)

// Steps lists the steps in execution order.
var Steps = []StepKind{
	StepCheckout,
	StepSetupEnvironment,
	StepInstallDependencies,
	StepInstallTarget,
	StepSmoke,
	StepVerify,
}

// FailureKind classifies why a run instance failed.
type FailureKind string

const (
	FailureSetup        FailureKind = "setup"
	FailureInstall      FailureKind = "install"
	FailureVerification FailureKind = "verification"
	FailureArchive      FailureKind = "archive"
)

// FailureKind returns the failure class reported when the step fails.
func (k StepKind) FailureKind() FailureKind {
	switch k {
	case StepInstallTarget:
		return FailureInstall
	case StepSmoke, StepVerify:
		return FailureVerification
	default:
		return FailureSetup
	}
}
