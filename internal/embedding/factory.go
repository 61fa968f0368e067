package embedding

import "fmt"

// Options selects and configures an embedder for New.
type Options struct {
	Provider string
	ONNX     ONNXConfig
	OpenAI   OpenAIConfig
	// Dimensions is used by the mock provider and fills unset provider dimensions.
	Dimensions int
}

// New creates an embedder for opts.Provider. An empty provider means ONNX.
func New(opts Options) (Embedder, error) {
	switch opts.Provider {
	case ProviderONNX, "":
		cfg := opts.ONNX
		if cfg.Dimensions == 0 {
			cfg.Dimensions = opts.Dimensions
		}
		e, err := NewONNXEmbedder(cfg)
		if err != nil {
			return nil, err
		}
		return e, nil
	case ProviderOpenAI:
		cfg := opts.OpenAI
		if cfg.Dimensions == 0 {
			cfg.Dimensions = opts.Dimensions
		}
		e, err := NewOpenAIEmbedder(cfg)
		if err != nil {
			return nil, err
		}
		return e, nil
	case ProviderMock:
		if opts.Dimensions <= 0 {
			return nil, fmt.Errorf("mock embedder: dimensions must be positive")
		}
		return NewMockEmbedder(opts.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: onnx, openai, mock)", opts.Provider)
	}
}
