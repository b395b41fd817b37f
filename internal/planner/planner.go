// ============================================================================
// simjobs Planner - 產生與提交流程
// ============================================================================
//
// Package: internal/planner
// 文件: planner.go
// 功能: 串接列舉、審核、腳本產生、描述檔產生與提交，一次執行一條直線流程
//
// 狀態機（每次執行）:
//
//   Init -> DirectoryCheck -> { Fail | Enumerate }
//        -> Audit (每個單元)
//        -> { AllSatisfied -> Exit(0)
//           | SomeNeeded   -> WriteScripts -> WriteDescriptor -> Submit -> Exit }
//
// 前置條件（失敗即中止，不做任何清理）:
//   - 設定檔驗證通過
//   - steering file 與 detector 目錄存在
//   - job 目錄尚不存在（存在代表已有前次執行，不可覆寫）
//
// 審核不確定（檔案無法讀取、tree 不存在）一律視為需要重新產生，不是錯誤。
//
// 提交:
//   排程器命令的退出碼會被記錄並寫入報告；只有 Strict 模式才會把
//   非零退出碼轉成錯誤。
//
// 並發模型:
//   單執行緒、循序執行。唯一的阻塞點是檔案 I/O 與最後的提交命令。
//
// ============================================================================

package planner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ChuLiYu/simjobs/internal/audit"
	"github.com/ChuLiYu/simjobs/internal/config"
	"github.com/ChuLiYu/simjobs/internal/enumerator"
	"github.com/ChuLiYu/simjobs/internal/executor"
	"github.com/ChuLiYu/simjobs/internal/metrics"
	"github.com/ChuLiYu/simjobs/internal/script"
	"github.com/ChuLiYu/simjobs/pkg/types"
)

// ============================================================================
// 錯誤定義
// ============================================================================

var (
	// ErrJobDirExists 表示 job 目錄已存在，拒絕覆寫前次執行
	ErrJobDirExists = errors.New("job directory already exists and should not be overwritten")
	// ErrSubmitFailed 表示 Strict 模式下提交命令失敗
	ErrSubmitFailed = errors.New("scheduler submission failed")
)

// ============================================================================
// 資料結構定義
// ============================================================================

// Phase 流程所在階段
type Phase string

const (
	PhaseInit            Phase = "init"
	PhaseDirectoryCheck  Phase = "directory_check"
	PhaseEnumerate       Phase = "enumerate"
	PhaseAudit           Phase = "audit"
	PhaseAllSatisfied    Phase = "all_satisfied"
	PhaseWriteScripts    Phase = "write_scripts"
	PhaseWriteDescriptor Phase = "write_descriptor"
	PhaseSubmit          Phase = "submit"
	PhaseDone            Phase = "done"
	PhaseFailed          Phase = "failed"
)

// Options 執行選項
type Options struct {
	Submit bool // 是否呼叫排程器提交
	Strict bool // 提交失敗時回傳錯誤
}

// Report 單次執行結果
type Report struct {
	RunID      string                // 本次執行識別碼
	Phase      Phase                 // 結束時的階段
	JobDir     string                // job 目錄
	Counts     enumerator.Counts     // 列舉規模
	Satisfied  int                   // 已滿足而跳過的單元數
	Scripts    []string              // 寫出的腳本路徑
	Verdicts   map[types.Verdict]int // 各審核結果數量
	Descriptor string                // 描述檔路徑（未寫出為空）
	Queued     int                   // 描述檔 glob 到的腳本數
	Submitted  bool                  // 是否執行了提交命令
	Submit     *types.Result         // 提交命令結果
	Submission *script.Submission    // 解析出的 cluster 資訊
}

// Planner 流程協調器
type Planner struct {
	cfg     *config.Config
	auditor *audit.Auditor
	runner  executor.Runner
	metrics *metrics.Collector
	log     *zap.Logger
	runID   string
}

// ============================================================================
// 核心方法實作
// ============================================================================

// New 建立 Planner
//
// 參數：
//   - cfg: 已載入的設定（不會被修改）
//   - auditor: 輸出審核器
//   - runner: 外部程序執行器
//   - collector: 指標收集器，可為 nil
//   - logger: zap logger，可為 nil
func New(cfg *config.Config, auditor *audit.Auditor, runner executor.Runner, collector *metrics.Collector, logger *zap.Logger) *Planner {
	runID := uuid.NewString()
	if logger == nil {
		logger = zap.NewNop()
	}
	if collector == nil {
		collector = metrics.NewCollector(runID)
	}
	return &Planner{
		cfg:     cfg,
		auditor: auditor,
		runner:  runner,
		metrics: collector,
		log:     logger.With(zap.String("run_id", runID)),
		runID:   runID,
	}
}

// RunID 回傳本次執行識別碼
func (p *Planner) RunID() string {
	return p.runID
}

// Metrics 回傳指標收集器
func (p *Planner) Metrics() *metrics.Collector {
	return p.metrics
}

// Run 執行完整流程
//
// 返回值：
//   - *Report: 執行報告（錯誤時仍回傳已知部分）
//   - error: 前置條件失敗、檔案寫入失敗或 Strict 模式下提交失敗
func (p *Planner) Run(ctx context.Context, opts Options) (*Report, error) {
	start := time.Now()
	defer func() {
		p.metrics.RecordRun(time.Since(start), time.Now())
	}()

	report := &Report{
		RunID:    p.runID,
		Phase:    PhaseInit,
		JobDir:   p.cfg.JobDir(),
		Verdicts: make(map[types.Verdict]int),
	}

	fail := func(err error) (*Report, error) {
		p.log.Error("run aborted", zap.String("phase", string(report.Phase)), zap.Error(err))
		report.Phase = PhaseFailed
		return report, err
	}

	if err := p.cfg.Validate(); err != nil {
		return fail(fmt.Errorf("invalid configuration: %w", err))
	}
	if err := p.cfg.CheckPaths(); err != nil {
		return fail(err)
	}

	// 1. DirectoryCheck
	report.Phase = PhaseDirectoryCheck
	if err := createJobDir(report.JobDir); err != nil {
		return fail(err)
	}
	if err := os.MkdirAll(p.cfg.Paths.DataDir, 0755); err != nil {
		return fail(fmt.Errorf("failed to create data directory: %w", err))
	}

	// 2. Enumerate
	report.Phase = PhaseEnumerate
	report.Counts = enumerator.Count(p.cfg)
	units := enumerator.Enumerate(p.cfg)
	p.metrics.RecordPlanned(len(units))
	p.log.Info("enumerated job units",
		zap.Int("para_sets", report.Counts.ParaSets),
		zap.Int("jobs_per_set", report.Counts.JobsPerSet),
		zap.Int("total", report.Counts.Total),
		zap.String("job_dir", report.JobDir),
	)

	// 3. Audit + WriteScripts
	report.Phase = PhaseAudit
	for _, u := range units {
		path, err := p.writeUnit(u, report)
		if err != nil {
			return fail(err)
		}
		if path != "" {
			report.Phase = PhaseWriteScripts
			report.Scripts = append(report.Scripts, path)
		}
	}

	if len(report.Scripts) == 0 {
		report.Phase = PhaseAllSatisfied
		p.log.Info("all output files are correct", zap.Int("satisfied", report.Satisfied))
		return report, nil
	}
	p.log.Info("job scripts written",
		zap.Int("scripts", len(report.Scripts)),
		zap.Int("satisfied", report.Satisfied),
	)

	// 4. WriteDescriptor
	report.Phase = PhaseWriteDescriptor
	descriptor, err := script.WriteDescriptor(report.JobDir, p.cfg.Scheduler.DescriptorName, script.Descriptor{
		Priority: p.cfg.Jobs.Priority,
	})
	if err != nil {
		return fail(err)
	}
	report.Descriptor = descriptor
	queued, err := script.Match(report.JobDir)
	if err != nil {
		return fail(err)
	}
	report.Queued = len(queued)
	p.log.Info("submission descriptor written", zap.String("path", descriptor), zap.Int("queued", report.Queued))

	// 5. Submit
	if opts.Submit {
		report.Phase = PhaseSubmit
		if err := p.submit(ctx, report, opts.Strict); err != nil {
			return fail(err)
		}
	}

	report.Phase = PhaseDone
	return report, nil
}

// writeUnit 審核單一單元，需要時寫出腳本；回傳腳本路徑或空字串
func (p *Planner) writeUnit(u types.JobUnit, report *Report) (string, error) {
	perJob := p.cfg.Jobs.EventsPerJob
	outDir := enumerator.OutputDir(p.cfg.Paths.DataDir, u)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outName := enumerator.OutputName(u, perJob, p.cfg.Jobs.Naming)
	outPath := filepath.Join(outDir, outName)

	verdict := p.auditor.Check(outPath, perJob)
	report.Verdicts[verdict]++
	p.metrics.RecordVerdict(verdict)
	if !verdict.NeedsGeneration() {
		report.Satisfied++
		p.log.Debug("output already complete", zap.Stringer("unit", u), zap.String("output", outPath))
		return "", nil
	}

	compact, err := p.cfg.CompactFile(u.Detector)
	if err != nil {
		return "", err
	}
	path, err := script.Write(report.JobDir, enumerator.ScriptName(u), script.Job{
		SetupScript:  p.cfg.Paths.SetupScript,
		Executable:   p.cfg.Simulation.Executable,
		CompactFile:  compact,
		OutputFile:   outName,
		SteeringFile: p.cfg.Paths.SteeringFile,
		Particle:     u.Particle,
		Momentum:     u.Momentum,
		Angle:        u.Angle,
		Distribution: p.cfg.Simulation.GunDistribution,
		Events:       perJob,
		CopyCommand:  p.cfg.Storage.CopyCommand,
		RemoteURL:    p.cfg.Storage.RemoteURL,
		OutputDir:    outDir,
	})
	if err != nil {
		return "", err
	}
	p.metrics.RecordScriptWritten()
	p.log.Debug("job script written", zap.Stringer("unit", u), zap.String("verdict", string(verdict)), zap.String("script", path))
	return path, nil
}

// submit 在 job 目錄內執行排程器提交命令
func (p *Planner) submit(ctx context.Context, report *Report, strict bool) error {
	cmd := types.Command{
		Name: p.cfg.Scheduler.SubmitCommand,
		Args: []string{p.cfg.Scheduler.DescriptorName},
		Dir:  report.JobDir,
	}
	p.log.Info("submitting to scheduler", zap.String("command", cmd.String()), zap.String("dir", cmd.Dir))

	result := p.runner.Run(ctx, cmd)
	report.Submitted = true
	report.Submit = &result
	p.metrics.RecordSubmit(result.ExitCode)

	if sub, ok := script.ParseSubmitOutput(result.Output); ok {
		report.Submission = &sub
		p.log.Info("jobs submitted", zap.Int("jobs", sub.Jobs), zap.String("cluster", sub.Cluster))
	}

	if result.Success() {
		return nil
	}
	p.log.Warn("scheduler submission did not succeed",
		zap.Int("exit_code", result.ExitCode),
		zap.Error(result.Error),
		zap.String("output", result.Output),
	)
	if strict {
		return fmt.Errorf("%w: %s exited with %d", ErrSubmitFailed, cmd.Name, result.ExitCode)
	}
	return nil
}

// createJobDir 建立 job 目錄；目錄已存在時回傳 ErrJobDirExists
func createJobDir(dir string) error {
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("%w: %s", ErrJobDirExists, dir)
	}
	if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
		return fmt.Errorf("failed to create job directory parent: %w", err)
	}
	if err := os.Mkdir(dir, 0755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrJobDirExists, dir)
		}
		return fmt.Errorf("failed to create job directory: %w", err)
	}
	return nil
}
