package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string      `json:"status"` // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Success json 模式输出 data，text 模式调用 text 渲染
func (f *OutputFormatter) Success(data interface{}, text func(w io.Writer)) error {
	if f.Format == "json" {
		return f.writeJSON(CLIResponse{Status: "ok", Data: data})
	}
	text(f.Writer)
	return nil
}

// Failure 输出结果后返回 err，使进程以非零码退出
func (f *OutputFormatter) Failure(data interface{}, err error, text func(w io.Writer)) error {
	if f.Format == "json" {
		if werr := f.writeJSON(CLIResponse{Status: "error", Data: data, Error: err.Error()}); werr != nil {
			return werr
		}
		return err
	}
	text(f.Writer)
	return err
}

func (f *OutputFormatter) writeJSON(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
