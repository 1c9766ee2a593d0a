// Package backends wires every built-in backend into a chatcore.Registry.
package backends

import (
	chatcore "github.com/haowjy/meridian-chat-core"
	"github.com/haowjy/meridian-chat-core/backends/anthropic"
	"github.com/haowjy/meridian-chat-core/backends/dummy"
	"github.com/haowjy/meridian-chat-core/backends/openai"
)

// NewRegistry returns a registry holding all built-in backends.
func NewRegistry() *chatcore.Registry {
	r := chatcore.NewRegistry()
	r.Register(chatcore.BackendDummy, dummy.NewDummy)
	r.Register(chatcore.BackendDummyCoder, dummy.NewCoder)
	r.Register(chatcore.BackendLorem, dummy.NewLorem)
	r.Register(chatcore.BackendOpenAICompatible, openai.NewBackend)
	r.Register(chatcore.BackendAnthropic, anthropic.NewBackend)
	return r
}
