// Package evaluation runs suites of tasks against a crew and reports how many
// finished the way they were expected to.
//
// A Task passes when its Completed outcome equals ExpectedCompleted (true by
// default). A runner error fails the task without stopping the suite.
package evaluation
