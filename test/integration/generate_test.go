// ============================================================================
// simjobs 端到端測試套件
// ============================================================================
//
// Package: test/integration
// 文件: generate_test.go
// 功能: 以真實的 ROOT 檔、真實的外部程序執行器跑完整流程
//
// 測試目標:
//   1. 已完成的輸出被跳過，事件數不符與缺少的輸出重新產生
//   2. 描述檔 glob 到的腳本數等於寫出的腳本數
//   3. 提交命令在 job 目錄內執行，輸出被解析為 cluster 資訊
//   4. 第二次執行拒絕覆寫既有 job 目錄
//
// 排程器以一個 shell 腳本代替，不需要 HTCondor。
//
// ============================================================================

package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rtree"
	"go.uber.org/zap/zaptest"

	"github.com/ChuLiYu/simjobs/internal/audit"
	"github.com/ChuLiYu/simjobs/internal/config"
	"github.com/ChuLiYu/simjobs/internal/enumerator"
	"github.com/ChuLiYu/simjobs/internal/executor"
	"github.com/ChuLiYu/simjobs/internal/planner"
	"github.com/ChuLiYu/simjobs/pkg/types"
)

// fakeSubmit 假的 condor_submit：確認描述檔存在，回報目前目錄的腳本數
const fakeSubmit = `#!/bin/sh
test -f "$1" || exit 2
set -- *.sh
echo "Submitting job(s)......"
echo "$# job(s) submitted to cluster 4242."
`

func newConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()

	steering := filepath.Join(root, "steer.py")
	detector := filepath.Join(root, "detector")
	submit := filepath.Join(root, "bin", "condor_submit")
	require.NoError(t, os.WriteFile(steering, []byte("# steering"), 0644))
	require.NoError(t, os.Mkdir(detector, 0755))
	require.NoError(t, os.Mkdir(filepath.Dir(submit), 0755))
	require.NoError(t, os.WriteFile(submit, []byte(fakeSubmit), 0755))

	cfg := config.Default()
	cfg.Paths.SteeringFile = steering
	cfg.Paths.DetectorDir = detector
	cfg.Paths.DataDir = filepath.Join(root, "data")
	cfg.Paths.JobDir = filepath.Join(root, "jobs")
	cfg.Paths.SetupScript = "/cvmfs/sw.hsf.org/key4hep/setup.sh"
	cfg.Jobs.TotalEvents = 30
	cfg.Jobs.EventsPerJob = 10
	cfg.Parameters.DetectorModels = []string{"CLD_o2_v05"}
	cfg.Parameters.Particles = []string{"mu"}
	cfg.Parameters.Angles = []string{"10"}
	cfg.Parameters.Momenta = []string{"1", "2"}
	cfg.Geometry.Models = map[string]string{"CLD_o2_v05": "FCCee/CLD/compact/CLD_o2_v05/CLD_o2_v05.xml"}
	cfg.Scheduler.SubmitCommand = submit
	return cfg
}

// writeOutput 為 unit 寫出含 n 筆 entries 的 ROOT 輸出
func writeOutput(t *testing.T, cfg *config.Config, u types.JobUnit, n int) string {
	t.Helper()
	dir := enumerator.OutputDir(cfg.Paths.DataDir, u)
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, enumerator.OutputName(u, cfg.Jobs.EventsPerJob, cfg.Jobs.Naming))

	f, err := groot.Create(path)
	require.NoError(t, err)
	var evt int32
	w, err := rtree.NewWriter(f, cfg.Simulation.Tree, []rtree.WriteVar{{Name: "evt", Value: &evt}})
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		evt = int32(i)
		_, err := w.Write()
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
	return path
}

func newPlanner(t *testing.T, cfg *config.Config) *planner.Planner {
	auditor := audit.New(cfg.Jobs.CheckOutput, cfg.Simulation.Tree, audit.RootCounter{})
	return planner.New(cfg, auditor, executor.NewExecRunner(10*time.Second), nil, zaptest.NewLogger(t))
}

func TestEndToEnd_RegeneratesIncompleteOutputs(t *testing.T) {
	cfg := newConfig(t)
	units := enumerator.Enumerate(cfg)
	require.Len(t, units, 6)

	// 一個完整、一個事件數不足，其餘缺少
	writeOutput(t, cfg, units[0], 10)
	writeOutput(t, cfg, units[1], 4)

	report, err := newPlanner(t, cfg).Run(context.Background(), planner.Options{Submit: true, Strict: true})
	require.NoError(t, err)

	assert.Equal(t, planner.PhaseDone, report.Phase)
	assert.Equal(t, 1, report.Satisfied)
	assert.Len(t, report.Scripts, 5)
	assert.Equal(t, 1, report.Verdicts[types.VerdictSatisfied])
	assert.Equal(t, 1, report.Verdicts[types.VerdictMismatch])
	assert.Equal(t, 4, report.Verdicts[types.VerdictMissing])
	assert.Equal(t, 5, report.Queued)

	jobDir := filepath.Join(cfg.Paths.JobDir, "mu_CLD_o2_v05")
	assert.NoFileExists(t, filepath.Join(jobDir, enumerator.ScriptName(units[0])), "satisfied unit gets no script")
	assert.FileExists(t, filepath.Join(jobDir, enumerator.ScriptName(units[1])))
	assert.FileExists(t, filepath.Join(jobDir, "condor_script.sub"))

	require.True(t, report.Submitted)
	require.NotNil(t, report.Submission)
	assert.Equal(t, 5, report.Submission.Jobs)
	assert.Equal(t, "4242", report.Submission.Cluster)
	assert.Equal(t, 0, report.Submit.ExitCode)
}

func TestEndToEnd_AllOutputsComplete(t *testing.T) {
	cfg := newConfig(t)
	for _, u := range enumerator.Enumerate(cfg) {
		writeOutput(t, cfg, u, 10)
	}

	report, err := newPlanner(t, cfg).Run(context.Background(), planner.Options{Submit: true, Strict: true})
	require.NoError(t, err)

	assert.Equal(t, planner.PhaseAllSatisfied, report.Phase)
	assert.Equal(t, 6, report.Satisfied)
	assert.Empty(t, report.Scripts)
	assert.False(t, report.Submitted, "nothing to submit")
	assert.NoFileExists(t, filepath.Join(report.JobDir, "condor_script.sub"))
}

func TestEndToEnd_SecondRunRefused(t *testing.T) {
	cfg := newConfig(t)

	_, err := newPlanner(t, cfg).Run(context.Background(), planner.Options{Submit: false})
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(cfg.Paths.JobDir, "mu_CLD_o2_v05"))
	require.NoError(t, err)
	before := len(entries)

	_, err = newPlanner(t, cfg).Run(context.Background(), planner.Options{Submit: true})
	assert.ErrorIs(t, err, planner.ErrJobDirExists)

	entries, err = os.ReadDir(filepath.Join(cfg.Paths.JobDir, "mu_CLD_o2_v05"))
	require.NoError(t, err)
	assert.Len(t, entries, before, "job directory untouched")
}

func TestEndToEnd_StrictSubmitFailure(t *testing.T) {
	cfg := newConfig(t)
	// 排程器拒絕提交，以 exit 2 結束
	require.NoError(t, os.WriteFile(cfg.Scheduler.SubmitCommand, []byte("#!/bin/sh\nexit 2\n"), 0755))

	report, err := newPlanner(t, cfg).Run(context.Background(), planner.Options{Submit: true, Strict: true})
	assert.ErrorIs(t, err, planner.ErrSubmitFailed)
	require.NotNil(t, report.Submit)
	assert.Equal(t, 2, report.Submit.ExitCode)
	assert.Nil(t, report.Submission)
	assert.Len(t, report.Scripts, 6, "scripts stay on disk for a manual resubmit")
}
