// Package model provides the data structures shared by the pipeline package and its options.
// It defines the trigger events, the stages and their run instances, the published stage results
// and the artifacts captured for failed instances, as well as the hook interface implemented by
// pipeline options such as the drawer and the measure.
package model
