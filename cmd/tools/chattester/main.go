package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/heartline/backend/internal/config"
	"github.com/zhouzirui/heartline/backend/internal/model/chat"
	emotionservice "github.com/zhouzirui/heartline/backend/internal/service/emotion"
	"github.com/zhouzirui/heartline/backend/internal/service/inference"
)

var (
	serverFlag  string
	messageFlag string
	userFlag    string
	timeoutFlag time.Duration
	localFlag   bool
)

var rootCmd = &cobra.Command{
	Use:   "chattester",
	Short: "手动调试聊天后端的命令行工具",
	PersistentPreRun: func(*cobra.Command, []string) {
		_ = godotenv.Load()
	},
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "POST /chat 并打印回复",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSend(cmd.Context(), cmd.OutOrStdout())
	},
}

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "订阅 /chat/stream 并逐条打印事件",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runStream(cmd.Context(), cmd.OutOrStdout())
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "只做情绪分析，不调用大模型",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runAnalyze(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverFlag, "server", "s", "http://localhost:8080", "后端地址")
	rootCmd.PersistentFlags().StringVarP(&messageFlag, "message", "m", "", "要发送的消息")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "user_id，留空使用默认会话")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 60*time.Second, "请求超时时间")
	analyzeCmd.Flags().BoolVar(&localFlag, "local", false, "在本地运行分类器而不是请求后端")

	rootCmd.AddCommand(sendCmd, streamCmd, analyzeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func requireMessage() (string, error) {
	msg := strings.TrimSpace(messageFlag)
	if msg == "" {
		return "", fmt.Errorf("请通过 -m 指定消息内容")
	}
	return msg, nil
}

func runSend(ctx context.Context, out io.Writer) error {
	msg, err := requireMessage()
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	body, err := json.Marshal(chat.Request{Message: msg, UserID: userFlag})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(serverFlag, "/")+"/chat", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("后端返回 %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var decoded chat.Response
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	return printResponse(out, decoded, time.Since(start))
}

func printResponse(out io.Writer, resp chat.Response, elapsed time.Duration) error {
	a := resp.UserEmotionAnalysis
	_, err := fmt.Fprintf(out,
		"emotion: %s (score %.2f, intensity %.1f, sarcasm %.2f)\nreply:   %s\nmodel:   %s  cache: %t  id: %s  elapsed: %s\n",
		a.PrimaryEmotion, a.PrimaryScore, a.Intensity, a.SarcasmScore,
		resp.AIResponse,
		resp.ModelUsed, resp.FromCache, resp.ResponseID, elapsed.Round(time.Millisecond))
	return err
}

func runStream(ctx context.Context, out io.Writer) error {
	msg, err := requireMessage()
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := url.Values{"message": {msg}}
	if userFlag != "" {
		query.Set("user_id", userFlag)
	}
	endpoint := strings.TrimRight(serverFlag, "/") + "/chat/stream?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("后端返回 %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	return copyEvents(resp.Body, out)
}

// copyEvents prints one line per SSE event and stops at "end" or "error".
func copyEvents(r io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	event := "message"
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if _, err := fmt.Fprintf(out, "[%s] %s\n", event, data); err != nil {
				return err
			}
			if event == "end" {
				return nil
			}
			if event == "error" {
				return fmt.Errorf("stream error: %s", data)
			}
		case line == "":
			event = "message"
		}
	}
	return scanner.Err()
}

func runAnalyze(ctx context.Context, out io.Writer) error {
	msg, err := requireMessage()
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("配置加载失败: %w", err)
	}

	opts := emotionservice.Options{Logger: zap.NewNop()}
	if localFlag || cfg.Classifier.Backend == config.BackendLexicon {
		opts.Emotion = inference.Lexicon{}
		opts.Sarcasm = inference.SarcasmLexicon{}
	} else {
		c := cfg.Classifier
		opts.Emotion = inference.NewHuggingFace(c.HFBaseURL, c.HFToken, c.EmotionModel, c.Timeout)
		opts.Sarcasm = inference.NewHuggingFace(c.HFBaseURL, c.HFToken, c.SarcasmModel, c.Timeout)
	}

	result, err := emotionservice.NewService(opts).Analyze(ctx, msg, nil)
	if err != nil {
		return fmt.Errorf("情绪分析失败: %w", err)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeoutFlag)
}
