package constants

// response codes
// these consist of 4 digit numbers
//
// the 1st 3 are randomly generated but represent specific scenarios
// 4th indicates if the response requires user interaction through a dialog box. 0 means it does not require. 1 means it requires.

var AUTHENTICATION_FAILED uint = 4120 // show the failure reason and let the user retry
var LIVENESS_CHECK_FAILED uint = 4131 // walk the user through the liveness capture flow again
var NO_ENROLLED_TEMPLATES uint = 4440 // take the user to the enrollment page
var CHALLENGE_EXPIRED uint = 6170     // request a new liveness challenge
var TEMPLATE_ENROLLED uint = 9110     // enrollment succeeded
var PROVIDER_UNAVAILABLE uint = 5030  // display the temporary outage page

var SUPPORTED_IMAGE_FORMATS = []string{"jpeg", "jpg", "png"}

var MAX_LIVENESS_FRAMES = 30
var MAX_SEARCH_LIMIT = 50

var SUPPORT_EMAIL = "help@faceguard.io"
