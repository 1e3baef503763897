package telegram

import tele "gopkg.in/telebot.v4"

// removeMarkup returns a markup that hides the reply keyboard.
func removeMarkup() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

// replyButtons builds a reply keyboard from rows of text.
func replyButtons(rows [][]string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}
	var keyboard []tele.Row
	for _, row := range rows {
		var buttons []tele.Btn
		for _, label := range row {
			buttons = append(buttons, markup.Text(label))
		}
		keyboard = append(keyboard, markup.Row(buttons...))
	}
	markup.Reply(keyboard...)
	return markup
}

// inlineButtons builds an inline keyboard from rows of labels. The callback
// data is the label itself so taps flow back into the dialogue as plain
// inputs.
func inlineButtons(rows [][]string) *tele.ReplyMarkup {
	inline := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		r := make([]tele.InlineButton, 0, len(row))
		for _, label := range row {
			r = append(r, tele.InlineButton{Text: label, Data: label})
		}
		inline = append(inline, r)
	}
	return &tele.ReplyMarkup{InlineKeyboard: inline}
}
