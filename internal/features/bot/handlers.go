package bot

import (
	"errors"
	"fmt"
	"strings"

	"resi-tracker/internal/features/color"
	"resi-tracker/internal/features/tracking/domain"
	"resi-tracker/internal/features/tracking/presenter"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const (
	foldedHands  = "🙏"
	smilingFace  = "☺️"
	messageLimit = 4096

	usageCekResi    = foldedHands + foldedHands + " Accepted command is like:\n\n/cek_resi \"SHOPEE EXPRESS\" \"YOUR AWB\""
	replyStart      = "I'm a bot, please talk to me!"
	replyUnknown    = "Sorry, I didn't understand that command."
	replyError      = "Sorry, Error occured. " + foldedHands
	replyInvalidHex = "Please provide a valid hexadecimal color code (e.g., #FFAABB or FFAABB)."
	usageCaps       = "Usage: /caps <text>"
)

// handleCekResi answers /cek_resi "CARRIER" "AWB".
func (b *Bot) handleCekResi(c tele.Context) error {
	args := ParseArguments(c.Message().Payload)
	if len(args) != 2 {
		return c.Send(usageCekResi)
	}
	carrier, waybill := args[0], args[1]

	_ = c.Notify(tele.Typing)

	result, err := b.tracker.Lookup(b.ctx, carrier, waybill)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownCarrier):
			return b.sendExpeditionList(c, fmt.Sprintf("Sorry, Ekspedisi %s tidak tersedia. %s", carrier, foldedHands))
		case errors.Is(err, domain.ErrInvalidRequest):
			return c.Send(usageCekResi)
		}

		b.logger.Error("Tracking lookup failed",
			zap.String("carrier", carrier),
			zap.String("waybill", waybill),
			zap.Error(err),
		)
		return c.Send(replyError)
	}

	if !result.Success {
		return c.Send(result.Text)
	}

	if err := sendChunks(c, result.Text, tele.ModeMarkdownV2); err != nil {
		// Cell text can carry characters MarkdownV2 reserves, such as [ ] ! or _.
		b.logger.Warn("MarkdownV2 reply rejected, resending as plain text",
			zap.String("carrier", carrier),
			zap.String("waybill", waybill),
			zap.Error(err),
		)
		if err := sendChunks(c, presenter.RenderTable(result.Outcome.History)); err != nil {
			b.logger.Error("Plain text reply rejected", zap.Error(err))
			return c.Send(replyError)
		}
	}
	return nil
}

// sendChunks sends text in pieces that fit in one Telegram message.
func sendChunks(c tele.Context, text string, opts ...interface{}) error {
	for _, part := range splitMessage(text, messageLimit) {
		if err := c.Send(part, opts...); err != nil {
			return err
		}
	}
	return nil
}

// handleCekEkspedisi answers /cek_resi_cek_ekspedisi [name].
func (b *Bot) handleCekEkspedisi(c tele.Context) error {
	name := strings.TrimSpace(c.Message().Payload)
	if name == "" {
		return b.sendExpeditionList(c, "")
	}

	if b.tracker.IsKnown(name) {
		return c.Send(fmt.Sprintf("Ekspedisi %s tersedia. %s", name, smilingFace))
	}
	return b.sendExpeditionList(c, fmt.Sprintf("Sorry, Ekspedisi %s tidak tersedia. %s", name, foldedHands))
}

func (b *Bot) sendExpeditionList(c tele.Context, firstLine string) error {
	return c.Send(presenter.ExpeditionList(b.tracker.Expeditions(), firstLine), tele.ModeMarkdownV2)
}

func (b *Bot) handleStart(c tele.Context) error {
	return c.Send(replyStart)
}

func (b *Bot) handleCaps(c tele.Context) error {
	text := strings.Join(strings.Fields(c.Message().Payload), " ")
	if text == "" {
		return c.Send(usageCaps)
	}
	return c.Send(strings.ToUpper(text))
}

func (b *Bot) handleHexToRGB(c tele.Context) error {
	fields := strings.Fields(c.Message().Payload)
	if len(fields) == 0 {
		return c.Send(replyInvalidHex)
	}

	code := strings.TrimPrefix(fields[0], "#")
	rgb, err := color.HexToRGB(code)
	if err != nil {
		b.logger.Debug("Rejected hex color", zap.String("input", fields[0]), zap.Error(err))
		return c.Send(replyInvalidHex)
	}
	return c.Send(fmt.Sprintf("RGB value for #%s: %s", code, rgb))
}

// handleText echoes plain text and rejects unregistered commands.
func (b *Bot) handleText(c tele.Context) error {
	text := c.Message().Text
	if strings.HasPrefix(text, "/") {
		return c.Send(replyUnknown)
	}
	return c.Send(text)
}

func (b *Bot) handleInlineCaps(c tele.Context) error {
	query := c.Query().Text
	if query == "" {
		return nil
	}

	upper := strings.ToUpper(query)
	article := &tele.ArticleResult{Title: "Caps", Text: upper}
	article.SetResultID(upper)

	return c.Answer(&tele.QueryResponse{Results: tele.Results{article}})
}

// splitMessage cuts text into chunks of at most limit runes, breaking on newlines
// where possible so escape sequences stay intact.
func splitMessage(text string, limit int) []string {
	if len([]rune(text)) <= limit {
		return []string{text}
	}

	var (
		parts   []string
		current strings.Builder
		size    int
	)
	flush := func() {
		if size > 0 {
			parts = append(parts, strings.TrimSuffix(current.String(), "\n"))
			current.Reset()
			size = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		n := len([]rune(line))
		if size+n > limit {
			flush()
		}
		for n > limit {
			r := []rune(line)
			cut := limit
			// Never split a backslash from the character it escapes.
			if r[cut-1] == '\\' {
				cut--
			}
			parts = append(parts, string(r[:cut]))
			line = string(r[cut:])
			n = len(r) - cut
		}
		current.WriteString(line)
		size += n
	}
	flush()

	return parts
}
