// Package conversation implements the multi-turn dialogue engine: per-user
// session state, the finite-state handler table, and the broadcast fan-out.
package conversation

// State identifies a step of the booking dialogue.
type State string

const (
	// StateCollectID collects the identity number on first contact.
	StateCollectID State = "collect_id"
	// StateCollectEmail collects the optional contact email.
	StateCollectEmail State = "collect_email"
	// StateMain shows the options menu.
	StateMain State = "main_menu"
	// StateEditID re-collects the identity number.
	StateEditID State = "edit_id"
	// StateEditEmail re-collects the contact email.
	StateEditEmail State = "edit_email"
	// StateChooseOrigin picks the origin station.
	StateChooseOrigin State = "choose_origin"
	// StateChooseDest picks the destination station.
	StateChooseDest State = "choose_destination"
	// StateChooseTrain picks one of the found departures.
	StateChooseTrain State = "choose_train"
	// StateConfirmSave asks whether to keep the booked train for reorder.
	StateConfirmSave State = "confirm_save"
	// StateSavedTrains picks a saved train to rebook.
	StateSavedTrains State = "saved_trains"
	// StateDeleteSaved picks a saved train to remove.
	StateDeleteSaved State = "delete_saved"
	// StateBroadcast collects the admin broadcast message.
	StateBroadcast State = "broadcast"
	// StateDone is the terminal state after /stop.
	StateDone State = "done"
)

// backable lists the states where the back sentinel short-circuits to the
// main menu. Only the terminal state is excluded.
var backable = map[State]bool{
	StateCollectID:    true,
	StateCollectEmail: true,
	StateMain:         true,
	StateEditID:       true,
	StateEditEmail:    true,
	StateChooseOrigin: true,
	StateChooseDest:   true,
	StateChooseTrain:  true,
	StateConfirmSave:  true,
	StateSavedTrains:  true,
	StateDeleteSaved:  true,
	StateBroadcast:    true,
}
