// Package texts holds every user-visible string in one place so the
// wording can be reviewed (or translated) without touching logic.
package texts

import "github.com/nulzo/concierge-bot/internal/core/domain"

const (
	StartMessage = "Hi! I'm your AI assistant. Ask me anything and I'll do my best to help."

	SystemPrompt = "You are a precise, respectful, and helpful AI assistant. " +
		"Keep answers clear, concise, and practical."

	HelpMessage = "Available commands:\n" +
		"/start - introduction\n" +
		"/help - this help\n" +
		"/new - clear the conversation\n" +
		"/model - choose a model\n" +
		"\n" +
		"Send any text message to get a reply."

	ChatReset    = "Conversation cleared. Let's start fresh!"
	ChatOnlyText = "Only text messages are supported for now."

	SponsorRequired = "To use this bot you must join all sponsor channels. " +
		"Once you've joined, send your message again."
	SponsorListTitle = "Sponsor channels:"
	SponsorListEmpty = "No sponsor channels are configured."
	SponsorAdded     = "Channel added."
	SponsorRemoved   = "Channel removed."
	MembershipOK     = "Membership confirmed. You can chat now."

	ModelSet     = "Reply model updated."
	ModelCurrent = "Current model: %s"

	GenericError = "Something went wrong while processing your request. Please try again later."

	NotAuthorized = "This command is for the administrator only."
	StatusTitle   = "System status:"
)

// Domain errors shown to the user verbatim.
var (
	ErrSponsorInvalid  = domain.UserVisible("That channel reference is not valid. Example: @channel or https://t.me/channel")
	ErrSponsorExists   = domain.UserVisible("That channel is already in the list.")
	ErrSponsorNotFound = domain.UserVisible("That channel is not in the list.")
	ErrModelNotAllowed = domain.UserVisible("That model is not allowed.")
	ErrAPIKeyMissing   = domain.UserVisible("No API key is configured. Ask the administrator to set one.")
)
