package hid

// ASCII translates a keycode to its US layout character, applying shift
// when either shift modifier is held. It returns 0 for keys with no
// character.
func ASCII(modifier, keycode uint8) byte {
	if modifier&ModShift != 0 {
		return keymapShift[keycode]
	}
	return keymap[keycode]
}

var keymap = [256]byte{
	KeyA: 'a', 'b', 'c', 'd', 'e', 'f', 'g', 'h', 'i', 'j', 'k', 'l', 'm',
	'n', 'o', 'p', 'q', 'r', 's', 't', 'u', 'v', 'w', 'x', 'y', 'z',
	Key1: '1', '2', '3', '4', '5', '6', '7', '8', '9', '0',
	KeyEnter: '\n', '\b', '\b', '\t', ' ', '-', '=', '[', ']', '\\', '#', ';', '\'', '`', ',', '.', '/',
	KeyPadSlash: '/', '*', '-', '+', '\n', '1', '2', '3', '4', '5', '6', '7', '8', '9', '0', '.', '\\',
	KeyPadEqual:   '=',
	KeyNonUSSlash: '\\',
}

var keymapShift = [256]byte{
	KeyA: 'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H', 'I', 'J', 'K', 'L', 'M',
	'N', 'O', 'P', 'Q', 'R', 'S', 'T', 'U', 'V', 'W', 'X', 'Y', 'Z',
	Key1: '!', '@', '#', '$', '%', '^', '&', '*', '(', ')',
	KeyEnter: '\n', '\b', '\b', '\t', ' ', '_', '+', '{', '}', '|', '~', ':', '"', '~', '<', '>', '?',
	KeyPadSlash: '/', '*', '-', '+', '\n', '1', '2', '3', '4', '5', '6', '7', '8', '9', '0', '.', '\\',
	KeyPadEqual:   '=',
	KeyNonUSSlash: '|',
}
