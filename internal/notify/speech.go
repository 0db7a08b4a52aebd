package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	appLog "nextcall/internal/log"
)

// elevenLabsVoiceID is a male British voice.
const elevenLabsVoiceID = "JBFqnCBsd6RMkjVDRZzb"

// Speaker reads announcements aloud, through the ElevenLabs API when a key
// is configured and through the local TTS binary otherwise.
type Speaker struct {
	apiKey string
	voice  string
	client *http.Client
}

// NewSpeaker creates a Speaker. apiKey may be empty to use the local TTS
// binary only.
func NewSpeaker(apiKey, voice string) *Speaker {
	return &Speaker{
		apiKey: apiKey,
		voice:  voice,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Say speaks the given text. ElevenLabs failures fall back to the local
// binary rather than erroring out.
func (s *Speaker) Say(ctx context.Context, text string) error {
	if s.apiKey != "" {
		err := s.sayElevenLabs(ctx, text)
		if err == nil {
			return nil
		}
		appLog.Warn("elevenlabs speech failed, falling back to local TTS", "err", err)
	}
	return s.sayLocal(ctx, text)
}

// sayLocal shells out to the platform TTS binary.
func (s *Speaker) sayLocal(ctx context.Context, text string) error {
	var cmd *exec.Cmd
	if runtime.GOOS == "darwin" {
		cmd = exec.CommandContext(ctx, "say", "-v", s.voice, text)
	} else {
		cmd = exec.CommandContext(ctx, "espeak", text)
	}
	return cmd.Run()
}

// sayElevenLabs fetches MP3 audio from the ElevenLabs API and plays it with
// a local player.
func (s *Speaker) sayElevenLabs(ctx context.Context, text string) error {
	audio, err := s.elevenLabsRequest(ctx, text)
	if err != nil {
		return err
	}
	return playMP3(ctx, audio)
}

func (s *Speaker) elevenLabsRequest(ctx context.Context, text string) ([]byte, error) {
	url := fmt.Sprintf(
		"https://api.elevenlabs.io/v1/text-to-speech/%s?output_format=mp3_44100_128",
		elevenLabsVoiceID)

	payload, err := json.Marshal(map[string]string{
		"text":     text,
		"model_id": "eleven_multilingual_v2",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// playMP3 writes the audio to a temp file and hands it to the platform
// player (afplay on macOS, mpg123 elsewhere).
func playMP3(ctx context.Context, audio []byte) error {
	f, err := os.CreateTemp("", "nextcall-*.mp3")
	if err != nil {
		return err
	}
	name := f.Name()
	defer os.Remove(name)

	if _, err := f.Write(audio); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	player := "mpg123"
	if runtime.GOOS == "darwin" {
		player = "afplay"
	}
	return exec.CommandContext(ctx, player, filepath.Clean(name)).Run()
}
