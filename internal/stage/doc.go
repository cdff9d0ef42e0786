// Package stage defines the step contract the worker drives for each claimed
// job, plus the Health record steps report for status views.
package stage
