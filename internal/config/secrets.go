package config

const redacted = "***"

// Redacted returns a copy of cfg safe to log: every credential field is
// masked and shared slices are copied so the caller cannot reach back into
// the live config.
func Redacted(cfg *Config) Config {
	out := *cfg

	mask(&out.Kalshi.AccessKeyID)
	mask(&out.Kalshi.KeyPassword)
	mask(&out.S3.AccessKey)
	mask(&out.S3.SecretKey)
	mask(&out.Notify.TelegramToken)
	mask(&out.Notify.DiscordWebhookURL)

	if cfg.Notify.Events != nil {
		out.Notify.Events = append([]string(nil), cfg.Notify.Events...)
	}

	return out
}

func mask(s *string) {
	if *s != "" {
		*s = redacted
	}
}
