// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

// Package ai is the Chef Hortal assistant: product description copy,
// price suggestions, and the customer-facing chat reply. Every call
// goes through a circuit breaker and a rate limiter, and every failure
// path degrades to a canned Portuguese reply so the primary order and
// chat flows never block on the text service.
package ai

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/padaria-hortal/hortal/internal/logging"
	"github.com/padaria-hortal/hortal/internal/metrics"
	"github.com/padaria-hortal/hortal/internal/models"
)

// Generator produces text for a prompt. The production implementation
// talks to the hosted generative API; tests substitute a stub.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config tunes the service.
type Config struct {
	// APIKey enables the remote generator. Empty means unconfigured:
	// every call answers with its canned fallback.
	APIKey string

	// BaseURL overrides the generative API endpoint. Empty uses the
	// hosted default.
	BaseURL string

	// Model names the generative model. Empty uses the default.
	Model string

	// Timeout bounds one generation call.
	Timeout time.Duration

	// RequestsPerMinute caps outbound calls. Zero disables the limiter.
	RequestsPerMinute int
}

// DefaultConfig returns production settings with no API key.
func DefaultConfig() Config {
	return Config{
		Model:             "gemini-1.5-flash",
		Timeout:           15 * time.Second,
		RequestsPerMinute: 30,
	}
}

// Service is the assistant facade.
type Service struct {
	gen     Generator
	breaker *gobreaker.CircuitBreaker[string]
	limiter *rate.Limiter
	timeout time.Duration
}

// NewService builds the assistant. With an empty APIKey the service
// runs in fallback-only mode.
func NewService(cfg Config) *Service {
	var gen Generator
	if cfg.APIKey != "" {
		gen = newHTTPGenerator(cfg)
	}
	return NewServiceWith(gen, cfg)
}

// NewServiceWith builds the assistant around an explicit generator.
// gen may be nil for fallback-only mode.
func NewServiceWith(gen Generator, cfg Config) *Service {
	settings := gobreaker.Settings{
		Name: "chef-hortal",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Assistant circuit breaker state change")
		},
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.RequestsPerMinute)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Service{
		gen:     gen,
		breaker: gobreaker.NewCircuitBreaker[string](settings),
		limiter: limiter,
		timeout: timeout,
	}
}

// Configured reports whether a remote generator is wired.
func (s *Service) Configured() bool {
	return s.gen != nil
}

// generate runs one guarded call: limiter, breaker, timeout.
func (s *Service) generate(ctx context.Context, prompt string) (string, error) {
	if s.gen == nil {
		return "", ErrNotConfigured
	}
	if s.limiter != nil && !s.limiter.Allow() {
		return "", ErrRateLimited
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.breaker.Execute(func() (string, error) {
		return s.gen.Generate(ctx, prompt)
	})
}

// GenerateDescription writes short sales copy for a product. Failures
// fall back to a generic line mentioning the category.
func (s *Service) GenerateDescription(ctx context.Context, name, category string) string {
	if s.gen == nil {
		metrics.AIRequests.WithLabelValues("description", "fallback").Inc()
		return fmt.Sprintf("Um produto delicioso e fresco da nossa categoria de %s. Feito com ingredientes selecionados.", category)
	}

	prompt := fmt.Sprintf(
		"Escreva uma descrição curta, apetitosa e vendedora (máximo 150 caracteres) para um produto chamado %q da categoria %q em uma padaria gourmet chamada Padaria Hortal. Use emojis.",
		name, category)

	text, err := s.generate(ctx, prompt)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("product", name).Msg("Description generation failed")
		metrics.AIRequests.WithLabelValues("description", "fallback").Inc()
		return fmt.Sprintf("Um produto especial da nossa categoria de %s. Experimente!", category)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		metrics.AIRequests.WithLabelValues("description", "fallback").Inc()
		return fmt.Sprintf("Delicioso %s, fresquinho para você!", name)
	}
	metrics.AIRequests.WithLabelValues("description", "ok").Inc()
	return text
}

// SuggestPrice proposes a BRL price for a product. Unconfigured
// answers 10.00; a failed call answers 0.
func (s *Service) SuggestPrice(ctx context.Context, name, category string) float64 {
	if s.gen == nil {
		metrics.AIRequests.WithLabelValues("price", "fallback").Inc()
		return 10.00
	}

	prompt := fmt.Sprintf(
		"Sugira um preço realista em Reais (BRL) para %q (categoria: %s) em uma padaria de alto padrão no Brasil. Retorne apenas o número (ex: 15.90).",
		name, category)

	text, err := s.generate(ctx, prompt)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("product", name).Msg("Price suggestion failed")
		metrics.AIRequests.WithLabelValues("price", "fallback").Inc()
		return 0
	}
	metrics.AIRequests.WithLabelValues("price", "ok").Inc()
	return ParsePrice(text)
}

// Chat answers one customer message, constrained to the current
// catalog. Failures answer with a canned apology.
func (s *Service) Chat(ctx context.Context, userMessage string, products []models.Product) string {
	if s.gen == nil {
		metrics.AIRequests.WithLabelValues("chat", "fallback").Inc()
		return "Olá! Sou o Chef Hortal. Como posso ajudar com seu pedido hoje?"
	}

	text, err := s.generate(ctx, chatPrompt(userMessage, products))
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Chat reply failed")
		metrics.AIRequests.WithLabelValues("chat", "fallback").Inc()
		return "Desculpe, estou preparando uma fornada agora! Posso te ajudar com algo mais simples ou você pode tentar falar comigo daqui a pouco? 🥖"
	}
	metrics.AIRequests.WithLabelValues("chat", "ok").Inc()
	return strings.TrimSpace(text)
}

func chatPrompt(userMessage string, products []models.Product) string {
	var list strings.Builder
	for _, p := range products {
		fmt.Fprintf(&list, "- %s (%s): %s - R$ %.2f\n", p.Name, p.Category, p.Description, p.Price)
	}

	return fmt.Sprintf(`Você é o "Chef Hortal", o mestre padeiro e assistente virtual da "Padaria Hortal".
Seu objetivo é ajudar os clientes a escolherem pães, doces e lanches deliciosos.
Seja sempre gentil, entusiasmado, use termos gastronômicos e emojis de padaria (🥖, 🥐, 🍞, 🥯, 🍰).

Produtos disponíveis na loja agora:
%s
Diretrizes:
1. Se o cliente pedir sugestão, recomende produtos da lista acima baseando-se no gosto dele.
2. Tente fazer "cross-selling" (ex: pão combina com queijo ou café).
3. Seja conciso (máximo 300 caracteres).
4. Fale em Português do Brasil.
5. Se o produto não estiver na lista, diga que não temos no momento mas sugira algo parecido.

Mensagem do cliente: %q`, list.String(), userMessage)
}

// ParsePrice extracts a decimal from free-form generator output. It
// keeps digits, dots, and commas, treats a comma as the decimal
// separator, and answers 10.00 when nothing remains.
func ParsePrice(text string) float64 {
	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	cleaned := strings.ReplaceAll(b.String(), ",", ".")

	// A wordy reply leaves stray separators around the number, so only
	// the longest numeric prefix is parsed: "8.00." reads as 8.00.
	end := 0
	dotSeen := false
	for end < len(cleaned) {
		if cleaned[end] == '.' {
			if dotSeen {
				break
			}
			dotSeen = true
		}
		end++
	}
	prefix := cleaned[:end]
	if prefix == "" || prefix == "." {
		return 10.00
	}
	v, err := strconv.ParseFloat(prefix, 64)
	if err != nil {
		return 10.00
	}
	return v
}
