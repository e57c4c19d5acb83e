/*
Package params defines the transform parameter set and the request
boundary that produces it.

A request names its parameters in one of two encodings:

	/media/catalog/shoe.jpg?w=300&h=200&a=cover&f=webp
	/media/t/<token>/catalog/shoe.jpg

The token is the base64url canonical query, optionally followed by a
blake2b MAC. Both encodings decode through [DecodeRequest] to identical
[Params] for the same intent, and [Params.Canonical] is the stable string
the fingerprint is computed from.

Prompt-driven generation is privileged. The [PromptPolicy] decides whether a
request is granted it; when it is not, the prompt is stripped before the
params reach the fingerprint, so unprivileged callers can never create or
read a prompt-derived entry. A prompt request may name a second source with
look=<asset>; the image model composes it into the result:

	/media/models/anna.jpg?p=wear+this+jacket&look=looks/jacket.jpg&w=800
*/
package params
