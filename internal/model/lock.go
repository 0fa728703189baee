package model

// IsLocked reports whether userID may no longer post in conv. A missing
// conversation or item is treated as locked.
//
// The accepted pair stays unlocked after the item is given so pickup can be
// coordinated; a rejected requester is locked out for good.
func IsLocked(conv *Conversation, item *Item, userID int64) bool {
	if conv == nil || item == nil {
		return true
	}

	isRequester := userID == conv.RequesterID
	isOwner := userID == conv.OwnerID

	return conv.Status == ConversationRejected ||
		(conv.Status == ConversationAccepted && !isRequester && !isOwner) ||
		(item.Status == ItemStatusGiven && conv.Status != ConversationAccepted)
}

// CanSend is the negation of IsLocked.
func CanSend(conv *Conversation, item *Item, userID int64) bool {
	return !IsLocked(conv, item, userID)
}
