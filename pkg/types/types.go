// Package types 定義了 simjobs 系統中使用的核心領域模型
package types

import (
	"fmt"
	"time"
)

// JobUnit 工作單元，一組參數組合加上任務索引，對應一次模擬執行與一個腳本
// 身份完全由這五個欄位決定
type JobUnit struct {
	Angle     string `json:"angle"`      // 極角（度）
	Momentum  string `json:"momentum"`   // 動量（GeV）
	Particle  string `json:"particle"`   // 粒子種類，例如 mu、e、pi
	Detector  string `json:"detector"`   // 探測器模型名稱
	TaskIndex int    `json:"task_index"` // 同一參數組合下的任務索引
}

// String 回傳便於日誌閱讀的表示
func (u JobUnit) String() string {
	return fmt.Sprintf("%s/%s/%sdeg/%sGeV/%d", u.Detector, u.Particle, u.Angle, u.Momentum, u.TaskIndex)
}

// Verdict 輸出檔審核結果
type Verdict string

// 定義審核結果常數
const (
	VerdictDisabled     Verdict = "disabled"     // 審核關閉：一律重新產生
	VerdictMissing      Verdict = "missing"      // 輸出檔不存在
	VerdictSatisfied    Verdict = "satisfied"    // 事件數正確：跳過此單元
	VerdictMismatch     Verdict = "mismatch"     // 事件數不符
	VerdictInconclusive Verdict = "inconclusive" // 無法開啟或找不到 tree
)

// NeedsGeneration 只有 satisfied 才會跳過
func (v Verdict) NeedsGeneration() bool {
	return v != VerdictSatisfied
}

// Command 外部程序呼叫描述
type Command struct {
	Name string   // 可執行檔名稱
	Args []string // 參數列表
	Dir  string   // 執行目錄（空字串表示目前目錄）
}

// String 回傳類 shell 的命令列表示
func (c Command) String() string {
	s := c.Name
	for _, a := range c.Args {
		s += " " + a
	}
	return s
}

// Result 外部程序執行結果
type Result struct {
	ExitCode int           // 退出狀態碼，無法啟動時為 -1
	Output   string        // stdout 與 stderr 合併輸出
	Error    error         // 啟動或等待失敗時的錯誤
	Duration time.Duration // 實際執行時間
}

// Success 程序成功啟動且退出碼為 0
func (r Result) Success() bool {
	return r.Error == nil && r.ExitCode == 0
}
