package eventbus

// settings 主题设置
type settings struct {
	// buffer 每个订阅者的缓冲区大小
	buffer int

	// stateful 新订阅者立即收到最后一个事件
	stateful bool
}

// Option 主题选项
type Option func(*settings)

// BufSize 设置订阅缓冲区大小
func BufSize(size int) Option {
	return func(s *settings) {
		if size > 0 {
			s.buffer = size
		}
	}
}

// Stateful 设置主题为有状态模式
func Stateful() Option {
	return func(s *settings) {
		s.stateful = true
	}
}
