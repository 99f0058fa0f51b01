// Package pipeline runs a gated test pipeline.
//
// A recognized trigger starts the primary stage: its matrix is expanded into independent
// run instances which execute the same ordered steps (checkout, environment setup,
// dependency installation, target installation, smoke check and full verification) in
// parallel. Once every instance is terminal the stage result is aggregated and published.
//
// The gate subscribes to the primary result. When the primary stage failed it runs the
// fallback stage, the same steps with the optional capabilities excluded, to tell a core
// failure from a failure caused by those capabilities. Otherwise the fallback is reported
// as skipped and never instantiated.
//
// Every failed instance has its diagnostic directory captured as an artifact. Archiving is
// best effort and never changes the outcome of a run.
package pipeline
