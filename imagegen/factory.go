package imagegen

import (
	"nftgen/core"
	"nftgen/logging"
	"nftgen/sdruntime"
)

// NewProvider builds the backend named by cfg.Provider.
func NewProvider(cfg *core.Config, sdCfg *sdruntime.SDConfig, logger *logging.Logger) (Provider, error) {
	switch cfg.Provider {
	case core.ProviderLocal, "":
		if sdCfg.ModelPath == "" {
			sdCfg.ModelPath = cfg.ModelPath(core.DefaultSDModel.Filename)
		}
		return NewLocalProvider(sdCfg, logger, core.ParseBoolEnv("SD_VERIFY_MODEL", false)), nil
	case core.ProviderRemote:
		return NewRemoteProvider(cfg.RemoteURL, cfg.RemoteTimeout, logger), nil
	case core.ProviderOpenAI:
		return NewOpenAIProvider(OpenAIProviderConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: cfg.RemoteTimeout,
		}, logger), nil
	default:
		return nil, core.ErrUnknownProvider(cfg.Provider)
	}
}
