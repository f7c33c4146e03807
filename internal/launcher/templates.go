package launcher

// Identity: the command runs as given.
const simpleTemplateText = `{{.Command}}`

// Fan-out in place: start TaskCount copies on this node and wait for all.
const singleNodeTemplateText = `export CORES=$(getconf _NPROCESSORS_ONLN)
echo "Found cores : $CORES"
WORKERCOUNT={{.TaskCount}}

CMD ( ) {
{{.Command}}
}
for COUNT in $(seq 1 1 $WORKERCOUNT)
do
    echo "Launching worker: $COUNT"
    CMD &
done
wait
echo "All workers done"
`

const gnuParallelTemplateText = `export CORES=$(getconf _NPROCESSORS_ONLN)
echo "Found cores : $CORES"
WORKERCOUNT={{.TaskCount}}

# Deduplicate the nodefile
SSHLOGINFILE="$JOBNAME.nodes"
if [ -z "$PBS_NODEFILE" ]; then
    echo "localhost" > $SSHLOGINFILE
else
    sort -u $PBS_NODEFILE > $SSHLOGINFILE
fi

cat << PARALLEL_CMD_EOF > cmd_$JOBNAME.sh
{{.Command}}
PARALLEL_CMD_EOF
chmod u+x cmd_$JOBNAME.sh

# Commands fed to parallel, one line per worker
PFILE=cmd_${JOBNAME}.sh.parallel
cp /dev/null $PFILE

for COUNT in $(seq 1 1 $WORKERCOUNT)
do
    echo "sh cmd_$JOBNAME.sh" >> $PFILE
done

parallel --env _ --joblog "$JOBNAME.sh.parallel.log" \
    --sshloginfile $SSHLOGINFILE --jobs {{.TasksPerNode}} < $PFILE

echo "All workers done"
`

const mpiExecTemplateText = `export CORES=$(getconf _NPROCESSORS_ONLN)
echo "Found cores : $CORES"
WORKERCOUNT={{.TaskCount}}

# Deduplicate the nodefile
HOSTFILE="$JOBNAME.nodes"
if [ -z "$PBS_NODEFILE" ]; then
    echo "localhost" > $HOSTFILE
else
    sort -u $PBS_NODEFILE > $HOSTFILE
fi

cat << MPIEXEC_EOF > cmd_$JOBNAME.sh
{{.Command}}
MPIEXEC_EOF
chmod u+x cmd_$JOBNAME.sh

mpiexec --bind-to none -n $WORKERCOUNT --hostfile $HOSTFILE /usr/bin/sh cmd_$JOBNAME.sh

echo "All workers done"
`

const srunTemplateText = `export CORES=$SLURM_CPUS_ON_NODE
export NODES=$SLURM_JOB_NUM_NODES

echo "Found cores : $CORES"
echo "Found nodes : $NODES"
WORKERCOUNT={{.TaskCount}}

cat << SLURM_EOF > cmd_$SLURM_JOB_NAME.sh
{{.Command}}
SLURM_EOF
chmod a+x cmd_$SLURM_JOB_NAME.sh

TASKBLOCKS={{.TaskCount}}

srun --ntasks $TASKBLOCKS -l bash cmd_$SLURM_JOB_NAME.sh

echo "Done"
`

// Block-partitioned: with more task blocks than nodes, the cores of the
// allocation are split between blocks; otherwise whole nodes are.
const srunMPITemplateText = `export CORES=$SLURM_CPUS_ON_NODE
export NODES=$SLURM_JOB_NUM_NODES

echo "Found cores : $CORES"
echo "Found nodes : $NODES"
WORKERCOUNT={{.TaskCount}}

cat << SLURM_EOF > cmd_$SLURM_JOB_NAME.sh
{{.Command}}
SLURM_EOF
chmod a+x cmd_$SLURM_JOB_NAME.sh

TASKBLOCKS={{.TaskCount}}

if (( "$TASKBLOCKS" > "$NODES" ))
then
    echo "TaskBlocks:$TASKBLOCKS > Nodes:$NODES"
    CORES_PER_BLOCK=$(($NODES * $CORES / $TASKBLOCKS))
    for blk in $(seq 1 1 $TASKBLOCKS)
    do
        srun --ntasks $CORES_PER_BLOCK -l bash cmd_$SLURM_JOB_NAME.sh &
    done
    wait
else
    echo "TaskBlocks:$TASKBLOCKS <= Nodes:$NODES"
    NODES_PER_BLOCK=$(( $NODES / $TASKBLOCKS ))
    for blk in $(seq 1 1 $TASKBLOCKS)
    do
        srun --exclusive --nodes $NODES_PER_BLOCK -l bash cmd_$SLURM_JOB_NAME.sh &
    done
    wait
fi

echo "Done"
`

const aprunTemplateText = `WORKERCOUNT={{.TaskCount}}

cat << APRUN_EOF > cmd_$JOBNAME.sh
{{.Command}}
APRUN_EOF
chmod a+x cmd_$JOBNAME.sh

aprun -n {{.TaskCount}} -N {{.TasksPerNode}} {{with .Overrides}}{{.}} {{end}}/bin/bash cmd_$JOBNAME.sh &
wait

echo "Done"
`
