package llm

// CallOptions 是单次 Chat 调用的生成参数，零值表示使用供应商默认值。
type CallOptions struct {
	Temperature *float64
	MaxTokens   int
}

// CallOption 修改 CallOptions。
type CallOption func(*CallOptions)

// WithTemperature 设置采样温度。
func WithTemperature(t float64) CallOption {
	return func(o *CallOptions) {
		o.Temperature = &t
	}
}

// WithMaxTokens 设置最大生成 token 数。
func WithMaxTokens(n int) CallOption {
	return func(o *CallOptions) {
		o.MaxTokens = n
	}
}

// ApplyCallOptions 合并调用参数。
func ApplyCallOptions(opts ...CallOption) CallOptions {
	var o CallOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
