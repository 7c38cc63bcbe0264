package utils

import "net/url"

const avatarBaseURL = "https://api.dicebear.com/9.x/notionists/svg"

// AvatarURL builds a DiceBear avatar URL for the given seed (typically the
// user's name). The avatar is generated by DiceBear on request; nothing is
// stored locally.
func AvatarURL(seed string) string {
	params := url.Values{}
	params.Set("seed", seed)
	params.Set("backgroundColor", "ffffff")
	return avatarBaseURL + "?" + params.Encode()
}
