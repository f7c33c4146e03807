// Package provider requests blocks of compute capacity and tracks each
// block through its lifecycle:
//
//	PENDING -> RUNNING -> COMPLETED | FAILED | CANCELLED | TIMEOUT
//
// Two implementations share one record table and one set of rules:
//
//   - LocalProvider starts each block as a background process through a
//     channel. Finished processes become COMPLETED (exit 0) or FAILED.
//   - ClusterProvider submits each block to a batch scheduler. The
//     scheduler's dialect (Slurm, Torque/PBS, Grid Engine, HTCondor)
//     supplies the submit script template, the submit, status and cancel
//     commands, and the parsers for their output.
//
// # Capacity
//
// Submit returns an empty id and a nil error when MaxBlocks blocks are
// already pending or running. This is admission control, not failure.
//
// # Cancellation
//
// Cancel is optimistic. Once termination has been attempted the record is
// marked cancelled, even if the signal or scheduler command failed and even
// if the job had already finished. The returned booleans report whether the
// backend accepted the request. Unknown ids report false.
//
// # Records
//
// Records stay in the table until Reap removes them, which it only does
// for terminal records. Status reports UNKNOWN for ids the table lacks.
package provider
