package conversation

// BackLabel is the sentinel button that aborts any menu-reachable step and
// returns to the main menu.
const BackLabel = "Return to main menu"

// Main menu option labels. They double as inline callback payloads.
const (
	OptionEditID      = "Edit ID"
	OptionEditEmail   = "Edit email"
	OptionOrder       = "Order voucher"
	OptionSaved       = "Saved trains"
	OptionDeleteSaved = "Delete saved train"
)

const (
	msgWelcome         = "Welcome to the train voucher bot!\nPlease enter your ID"
	msgInvalidID       = "ID is not valid, please enter again"
	msgAskEmail        = "Please enter your email address (send /done to skip)"
	msgInvalidEmail    = "Email is not valid, please enter again"
	msgAskNewID        = "Please enter your new ID"
	msgAskNewEmail     = "Please enter your new email address (send /done to skip)"
	msgDetailsUpdated  = "Success! your details were updated"
	msgChooseOrigin    = "Please choose an origin station from the list below"
	msgChooseDest      = "Please choose a destination station from the list below"
	msgUnknownStation  = "Please choose a station from the list below"
	msgSearching       = "Searching for trains..."
	msgNoTrains        = "No trains are available for the next week"
	msgRemoteError     = "An error occurred on the server, please try again"
	msgChooseTrain     = "Please select a train from the list below"
	msgOrdering        = "Ordering voucher..."
	msgEmptyVoucher    = "No barcode image received from the server. This might happen when the same seat is ordered twice. Please pick another seat"
	msgDetailsRejected = "The server rejected the order, some of your details might be wrong, please enter them again"
	msgAskSave         = "Save this train for faster access next time?"
	msgYesOrNo         = "Please answer yes or no"
	msgTrainSaved      = "Success! train added to your saved trains"
	msgNoSaved         = "No saved trains found, order a voucher first to save one"
	msgChooseSaved     = "Choose a train to order from the list below"
	msgChooseDelete    = "Choose a train to delete from the list below"
	msgTrainPassed     = "The departure time of this train has already passed today"
	msgTrainGone       = "The selected train could not be found on the schedule, it may have changed. Please check the timetable"
	msgTrainDeleted    = "Success! train removed from your saved trains"
	msgAskBroadcast    = "Please send the message to broadcast"
	msgGoodbye         = "Goodbye !"
	msgStartHint       = "Send /start to begin"
	msgGeneralError    = "A general error occurred, returning to the main menu"
)

var yesNoKeyboard = [][]string{{"yes", "no"}}

// menuRows lays out the main menu options two per row.
var menuRows = [][]string{
	{OptionOrder},
	{OptionSaved, OptionDeleteSaved},
	{OptionEditID, OptionEditEmail},
}
