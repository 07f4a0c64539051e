package cake

import "time"

// now is the clock the task runner reads a task's start time from.
var now = time.Now
