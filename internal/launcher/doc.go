// Package launcher wraps a worker command in the script that starts it on
// every task slot of a block.
//
// A block is NodesPerBlock nodes with TasksPerNode tasks each. Every launcher
// renders TaskCount = TasksPerNode * NodesPerBlock into its script verbatim:
//
//	l, _ := launcher.Lookup("single-node")
//	script := l.Wrap("python worker.py", 4, 1, 10*time.Minute)
//
// Registered launchers:
//   - simple: the command unchanged
//   - single-node: TaskCount background copies on the current node, then wait
//   - gnu-parallel: GNU parallel over the deduplicated $PBS_NODEFILE
//   - mpiexec: mpiexec -n TaskCount over the deduplicated $PBS_NODEFILE
//   - srun: srun --ntasks TaskCount inside a Slurm allocation
//   - srun-mpi: one srun per task block, partitioned by cores or nodes
//   - aprun: aprun -n TaskCount -N TasksPerNode with optional overrides
//
// Launchers that stage the command write it to cmd_$JOBNAME.sh (or
// cmd_$SLURM_JOB_NAME.sh for the srun variants) in the job's directory.
package launcher
