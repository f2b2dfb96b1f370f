// Package pipeline drives the batch annotation loop: pull a batch from the
// generator, score it remotely, flatten the result, write one parquet file,
// then pull the next. Batches fail individually; the run keeps going and the
// summary carries the failure count.
package pipeline
