package models

import "fmt"

// Document path builders. Collections alternate with document IDs the way
// the remote store addresses them; every subscription scope key is the
// collection path it watches.

func ThemataCollection() string { return "themata" }

func ThemaPath(themaID string) string {
	return fmt.Sprintf("themata/%s", themaID)
}

func ThreadsCollection(themaID string) string {
	return fmt.Sprintf("themata/%s/threads", themaID)
}

func ThreadPath(themaID, threadID string) string {
	return fmt.Sprintf("themata/%s/threads/%s", themaID, threadID)
}

func CommentsCollection(themaID, threadID string) string {
	return fmt.Sprintf("themata/%s/threads/%s/comments", themaID, threadID)
}

func CommentPath(themaID, threadID, commentID string) string {
	return fmt.Sprintf("themata/%s/threads/%s/comments/%s", themaID, threadID, commentID)
}

func MailboxCollection(uid string) string {
	return fmt.Sprintf("mailboxes/%s/conversations", uid)
}

func ConversationSummaryPath(uid, conversationID string) string {
	return fmt.Sprintf("mailboxes/%s/conversations/%s", uid, conversationID)
}

func MessagesCollection(uid, conversationID string) string {
	return fmt.Sprintf("mailboxes/%s/conversations/%s/messages", uid, conversationID)
}

func MessagePath(uid, conversationID, messageID string) string {
	return fmt.Sprintf("mailboxes/%s/conversations/%s/messages/%s", uid, conversationID, messageID)
}
